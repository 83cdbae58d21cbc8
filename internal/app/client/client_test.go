package client

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTypingThrottle_OneSendPerWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	throttle := typingThrottle{clock: clock}

	if !throttle.allow() {
		t.Fatal("first signal denied")
	}
	if throttle.allow() {
		t.Fatal("second signal allowed inside the window")
	}

	clock.Advance(TypingSendCooldown - time.Millisecond)
	if throttle.allow() {
		t.Fatal("signal allowed just before the window expired")
	}

	clock.Advance(time.Millisecond)
	if !throttle.allow() {
		t.Fatal("signal denied after the window expired")
	}
}

func TestTypingThrottle_DeniedSignalDoesNotExtendWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	throttle := typingThrottle{clock: clock}

	throttle.allow()
	clock.Advance(TypingSendCooldown / 2)
	throttle.allow() // denied, must not restart the window
	clock.Advance(TypingSendCooldown / 2)

	if !throttle.allow() {
		t.Fatal("signal denied after the original window expired")
	}
}

func TestTypingThrottle_ResetAllowsImmediateSend(t *testing.T) {
	clock := clockwork.NewFakeClock()
	throttle := typingThrottle{clock: clock}

	throttle.allow()
	throttle.reset()

	if !throttle.allow() {
		t.Fatal("signal denied immediately after reset")
	}
}
