package chat

import (
	"strings"
	"testing"
)

func TestDefaultProfile_DeterministicPerName(t *testing.T) {
	first := DefaultProfile("Alice")
	second := DefaultProfile("Alice")

	if first != second {
		t.Fatalf("same name produced differing profiles:\n%+v\n%+v", first, second)
	}
}

func TestDefaultProfile_DistinctNamesDiffer(t *testing.T) {
	if DefaultProfile("Alice") == DefaultProfile("Bob") {
		t.Fatal("distinct names produced identical profiles")
	}
}

func TestDefaultAvatar_AttributesDrawnFromOptionSets(t *testing.T) {
	for _, name := range []string{"", "Alice", "Bob (2)", "田中", "a-very-long-username-with-symbols-!@#"} {
		avatar := DefaultAvatar(name)
		if err := avatar.Validate(); err != nil {
			t.Fatalf("generated avatar for %q fails validation: %v", name, err)
		}
	}
}

func TestDefaultColor_Format(t *testing.T) {
	color := DefaultColor("Alice")
	if !strings.HasPrefix(color, "hsl(") || !strings.HasSuffix(color, ", 70%, 72%)") {
		t.Fatalf("default color = %q, want hsl(<hue>, 70%%, 72%%)", color)
	}
}

func TestHashString_MatchesUTF16CodeUnits(t *testing.T) {
	// Hand-computed h = unit + h*31 over UTF-16 code units. The emoji case
	// covers surrogate pairs: U+1F600 hashes as 0xD83D then 0xDE00, not as
	// one code point.
	cases := map[string]int{
		"":    0,
		"ab":  3105,
		"Bob": 66965,
		"😀":   1772899,
	}
	for s, want := range cases {
		if got := hashString(s); got != want {
			t.Fatalf("hashString(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestHashString_NonNegative(t *testing.T) {
	for _, s := range []string{"", "a", "Alice", "zzzzzzzzzzzzzzzz", "Ω≈ç√"} {
		if h := hashString(s); h < 0 {
			t.Fatalf("hashString(%q) = %d, want non-negative", s, h)
		}
	}
}

func TestAvatarConfig_ValidateRejectsUnknownValue(t *testing.T) {
	avatar := DefaultAvatar("Alice")
	avatar.Hair = "mohawk"

	if err := avatar.Validate(); err == nil {
		t.Fatal("unknown hair value passed validation")
	}
}

func TestUserProfile_ValidateAllowsFreeFormColor(t *testing.T) {
	profile := DefaultProfile("Alice")
	profile.Color = "#ff00aa"

	if err := profile.Validate(); err != nil {
		t.Fatalf("free-form color rejected: %v", err)
	}
}
