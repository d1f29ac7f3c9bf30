package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/auth"
	"github.com/orato-labs/speechcoach/internal/buffer"
	"github.com/orato-labs/speechcoach/internal/config"
	"github.com/orato-labs/speechcoach/internal/db"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/suggest"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Port: 0, JWTSecret: testSecret}
	buf := buffer.New(buffer.Config{
		SilenceTimeout:  90 * time.Second,
		FinalizeTimeout: 10 * time.Minute,
	})
	return NewServer(cfg, &db.DB{}, buf,
		analysis.NewAnalyzer(analysis.DefaultConfig()),
		suggest.NewEngine(suggest.DefaultThresholds()),
		nil, nil)
}

func bearerFor(t *testing.T, role models.UserRole) (uuid.UUID, string) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Role: role}
	token, err := auth.GenerateToken(testSecret, user)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return user.ID, "Bearer " + token
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	_, token := bearerFor(t, models.RoleUser)

	body, _ := json.Marshal(map[string]interface{}{
		"segments": []models.Segment{
			{Text: "This is, um, a test.", SpeakerLabel: "speaker_0", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 2.5},
			{Text: "I uh think it works.", SpeakerLabel: "speaker_0", IsPrimarySpeaker: true, StartOffset: 2.5, EndOffset: 5},
		},
	})
	req := httptest.NewRequest("POST", "/api/v1/transcript/analyze", bytes.NewReader(body))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data analyzeResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := envelope.Data.Metrics
	if m.TotalWords != 10 {
		t.Fatalf("expected 10 words, got %d", m.TotalWords)
	}
	if m.TotalFillers != 2 {
		t.Fatalf("expected 2 fillers, got %d", m.TotalFillers)
	}
	if len(envelope.Data.Suggestions) == 0 {
		t.Fatal("expected suggestions for a filler-heavy sample")
	}
}

func TestAnalyzeRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/transcript/analyze", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestIngestThenListSessions(t *testing.T) {
	srv := newTestServer(t)
	userID, token := bearerFor(t, models.RoleUser)

	body, _ := json.Marshal(map[string]interface{}{
		"session_key": "conv-42",
		"segments": []models.Segment{
			{Text: "hello there", SpeakerLabel: "speaker_0", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 1},
			{Text: "", SpeakerLabel: "speaker_0", IsPrimarySpeaker: true, StartOffset: 1, EndOffset: 2},
		},
	})
	req := httptest.NewRequest("POST", "/api/v1/transcript/segments", bytes.NewReader(body))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data ingestResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Accepted != 1 || envelope.Data.Rejected != 1 {
		t.Fatalf("expected 1 accepted / 1 rejected, got %+v", envelope.Data)
	}

	req = httptest.NewRequest("GET", "/api/v1/sessions", nil)
	req.Header.Set("Authorization", token)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Data struct {
			Sessions []buffer.SessionInfo `json:"sessions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data.Sessions) != 1 {
		t.Fatalf("expected 1 buffered session, got %d", len(list.Data.Sessions))
	}
	if list.Data.Sessions[0].UserID != userID {
		t.Fatalf("session owned by wrong user: %v", list.Data.Sessions[0].UserID)
	}
}

func TestSessionsHiddenFromOtherUsers(t *testing.T) {
	srv := newTestServer(t)
	_, ownerToken := bearerFor(t, models.RoleUser)
	_, otherToken := bearerFor(t, models.RoleUser)

	body, _ := json.Marshal(map[string]interface{}{
		"session_key": "conv-1",
		"segments": []models.Segment{
			{Text: "private words", SpeakerLabel: "speaker_0", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 1},
		},
	})
	req := httptest.NewRequest("POST", "/api/v1/transcript/segments", bytes.NewReader(body))
	req.Header.Set("Authorization", ownerToken)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/api/v1/sessions", nil)
	req.Header.Set("Authorization", otherToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var list struct {
		Data struct {
			Sessions []buffer.SessionInfo `json:"sessions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data.Sessions) != 0 {
		t.Fatalf("other user can see foreign sessions: %v", list.Data.Sessions)
	}
}

func TestFinalizeUnknownSessionNoOp(t *testing.T) {
	srv := newTestServer(t)
	_, token := bearerFor(t, models.RoleUser)

	req := httptest.NewRequest("POST", "/api/v1/sessions/ghost/finalize", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if finalized, _ := resp.Data["finalized"].(bool); finalized {
		t.Fatal("unknown session reported as finalized")
	}
}

func TestRollupRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)
	_, token := bearerFor(t, models.RoleUser)

	req := httptest.NewRequest("POST", "/api/v1/rollup/2026-05-01", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestIdleLimitersPruned(t *testing.T) {
	srv := newTestServer(t)
	stale := time.Now().Add(-2 * limiterIdleTTL)
	for i := 0; i < limiterPruneLen; i++ {
		srv.limiters[fmt.Sprintf("auth|10.0.%d.%d", i/256, i%256)] = &clientLimiter{
			lim:      rate.NewLimiter(rate.Every(time.Second), 5),
			lastSeen: stale,
		}
	}

	handler := srv.rateLimit(func(w http.ResponseWriter, r *http.Request) {}, "auth", rate.Every(time.Second), 5)
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	handler(httptest.NewRecorder(), req)

	srv.limitersMu.Lock()
	n := len(srv.limiters)
	srv.limitersMu.Unlock()
	if n != 1 {
		t.Fatalf("expected stale limiters pruned down to 1, got %d", n)
	}
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	if got := clientAddr(r); got != "10.1.2.3" {
		t.Fatalf("unexpected addr: %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientAddr(r); got != "203.0.113.9" {
		t.Fatalf("unexpected forwarded addr: %q", got)
	}
}
