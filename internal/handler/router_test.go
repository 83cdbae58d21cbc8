package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"pokerchat/internal/app/chat"
	"pokerchat/internal/configs"
	"pokerchat/internal/pkg/errs"
)

// memProfileStore is an in-memory chat.ProfileStore for handler tests.
type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]chat.UserProfile
	getErr   error
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]chat.UserProfile)}
}

func (s *memProfileStore) Get(_ context.Context, username string) (*chat.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}
	if profile, ok := s.profiles[username]; ok {
		return &profile, nil
	}
	return nil, nil
}

func (s *memProfileStore) Put(_ context.Context, username string, profile chat.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[username] = profile
	return nil
}

func testDeps() *AppDeps {
	store := newMemProfileStore()
	return &AppDeps{
		Hub: chat.NewHub(store),
		Config: &configs.AppConfig{
			Environment:    "development",
			Port:           8080,
			AllowedOrigins: []string{},
		},
		Profiles: store,
	}
}

// envelope mirrors resp.JSONResponse with a raw payload for per-test decoding.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec, body
}

func TestRouter_Health(t *testing.T) {
	router := Router(testDeps())

	rec, body := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body.Code != 0 {
		t.Fatalf("envelope code = %d, want 0", body.Code)
	}
}

func TestStartSession_ReturnsUniqueIDs(t *testing.T) {
	router := Router(testDeps())

	seen := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		rec, body := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/startSession", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var data struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(body.Data, &data); err != nil {
			t.Fatalf("decode session data: %v", err)
		}
		if data.SessionID == "" {
			t.Fatal("empty sessionId")
		}
		if _, dup := seen[data.SessionID]; dup {
			t.Fatalf("duplicate sessionId %q", data.SessionID)
		}
		seen[data.SessionID] = struct{}{}
	}
}

func TestStartSession_RateLimited(t *testing.T) {
	router := Router(testDeps())

	var last *httptest.ResponseRecorder
	var lastBody envelope
	for i := 0; i < SessionBurst+1; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/startSession", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		last, lastBody = doRequest(t, router, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if lastBody.Code != errs.ErrRateLimitExceeded {
		t.Fatalf("envelope code = %d, want %d", lastBody.Code, errs.ErrRateLimitExceeded)
	}
}

func TestGetProfile_RequiresUsername(t *testing.T) {
	router := Router(testDeps())

	rec, body := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body.Code != errs.ErrInvalidParams {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrInvalidParams)
	}
}

func TestGetProfile_UnknownNameReadsAsNull(t *testing.T) {
	router := Router(testDeps())

	rec, body := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/profile?username=Nobody", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var data struct {
		Profile *chat.UserProfile `json:"profile"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode profile data: %v", err)
	}
	if data.Profile != nil {
		t.Fatalf("profile = %+v, want null", data.Profile)
	}
}

func TestGetProfile_StoreFailure(t *testing.T) {
	deps := testDeps()
	deps.Profiles.(*memProfileStore).getErr = errors.New("connection refused")
	router := Router(deps)

	rec, body := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/profile?username=Alice", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if body.Code != errs.ErrUnknown {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrUnknown)
	}
}

func TestProfile_UpsertRoundTrip(t *testing.T) {
	router := Router(testDeps())

	profile := chat.DefaultProfile("Alice")
	profile.Color = "hsl(120, 70%, 72%)"

	payload, err := json.Marshal(UpsertProfileInput{Username: "Alice", Profile: profile})
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec, body := doRequest(t, router, req)
	if rec.Code != http.StatusOK || body.Code != 0 {
		t.Fatalf("upsert response = status %d, code %d", rec.Code, body.Code)
	}

	_, body = doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/profile?username=Alice", nil))

	var data struct {
		Profile *chat.UserProfile `json:"profile"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode profile data: %v", err)
	}
	if data.Profile == nil || data.Profile.Color != "hsl(120, 70%, 72%)" {
		t.Fatalf("read-back profile = %+v, want stored color", data.Profile)
	}
}

func TestUpsertProfile_RejectsInvalidAvatar(t *testing.T) {
	router := Router(testDeps())

	profile := chat.DefaultProfile("Alice")
	profile.AvatarConfig.Hair = "mohawk"

	payload, err := json.Marshal(UpsertProfileInput{Username: "Alice", Profile: profile})
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec, body := doRequest(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body.Code != errs.ErrProfileInvalid {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrProfileInvalid)
	}
}

func TestUpsertProfile_RejectsWrongContentType(t *testing.T) {
	router := Router(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewReader([]byte("username=Alice")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, body := doRequest(t, router, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnsupportedMediaType)
	}
	if body.Code != errs.ErrUnsupportedMediaType {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrUnsupportedMediaType)
	}
}

func TestUpsertProfile_RejectsUnknownFields(t *testing.T) {
	router := Router(testDeps())

	req := httptest.NewRequest(http.MethodPost, "/api/profile",
		bytes.NewReader([]byte(`{"username":"Alice","role":"admin"}`)))
	req.Header.Set("Content-Type", "application/json")

	rec, body := doRequest(t, router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body.Code != errs.ErrInvalidJSONFormat {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrInvalidJSONFormat)
	}
}

func TestUpsertProfile_RequiresUsername(t *testing.T) {
	router := Router(testDeps())

	payload, err := json.Marshal(UpsertProfileInput{Profile: chat.DefaultProfile("x")})
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	_, body := doRequest(t, router, req)
	if body.Code != errs.ErrInvalidParams {
		t.Fatalf("envelope code = %d, want %d", body.Code, errs.ErrInvalidParams)
	}
}

func TestStartSession_DistinctIPsHaveIndependentBuckets(t *testing.T) {
	router := Router(testDeps())

	for i := 0; i < SessionBurst; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/startSession", nil)
		req.RemoteAddr = "198.51.100.8:40000"
		doRequest(t, router, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/startSession", nil)
	req.RemoteAddr = "198.51.100.9:40000"

	rec, _ := doRequest(t, router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh IP rate limited: status %d", rec.Code)
	}
}
