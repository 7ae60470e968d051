package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fincoach/internal/core"
)

type fakeStore struct {
	history map[string][]core.ChatMessage
	txns    map[string][]core.Transaction
	cleared []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		history: make(map[string][]core.ChatMessage),
		txns:    make(map[string][]core.Transaction),
	}
}

func (f *fakeStore) AppendHistory(_ context.Context, sid, role, content string) error {
	f.history[sid] = append(f.history[sid], core.ChatMessage{Role: role, Content: content})
	return nil
}

func (f *fakeStore) ListHistory(_ context.Context, sid string, limit int) ([]core.ChatMessage, error) {
	h := f.history[sid]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

func (f *fakeStore) ClearSession(_ context.Context, sid string) error {
	f.cleared = append(f.cleared, sid)
	delete(f.history, sid)
	delete(f.txns, sid)
	return nil
}

func (f *fakeStore) ReplaceTransactions(_ context.Context, sid string, txns []core.Transaction) error {
	f.txns[sid] = txns
	return nil
}

type fakeCoach struct {
	lastText  string
	demoCalls int
}

func (f *fakeCoach) Respond(_ context.Context, _ string, text string) (string, error) {
	f.lastText = text
	return "coach says: " + text, nil
}

func (f *fakeCoach) LoadDemoData(context.Context, string) (int, error) {
	f.demoCalls++
	return 12, nil
}

type fakePublisher struct {
	sid string
	csv string
}

func (f *fakePublisher) PublishImportStatement(_ context.Context, sid, csv string) error {
	f.sid = sid
	f.csv = csv
	return nil
}

func newTestServer(store Store, coach Coach, publisher StatementPublisher) *Server {
	s := NewServer(":0", store, coach, publisher)
	// The cleanup goroutine is irrelevant for handler tests.
	s.rateLimiter.stop()
	return s
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeCoach{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestInitSetsSessionCookieAndWelcome(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, &fakeCoach{}, nil)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/init", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /init status = %d, want 200", rec.Code)
	}

	var sid string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			sid = c.Value
		}
	}
	if sid == "" {
		t.Fatal("no session cookie set on /init")
	}

	body := decodeJSON(t, rec)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "FinCoach") {
		t.Errorf("welcome text = %q, want greeting", text)
	}

	if len(store.history[sid]) != 1 {
		t.Fatalf("history has %d messages, want 1 welcome", len(store.history[sid]))
	}

	// Second init for the same session must not duplicate the welcome.
	req := httptest.NewRequest(http.MethodGet, "/init", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
	s.Handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.history[sid]) != 1 {
		t.Errorf("history has %d messages after second init, want 1", len(store.history[sid]))
	}
}

func TestChat(t *testing.T) {
	coach := &fakeCoach{}
	s := newTestServer(newFakeStore(), coach, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"Advice"}`))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /chat status = %d, want 200", rec.Code)
	}
	if coach.lastText != "Advice" {
		t.Errorf("coach received %q, want %q", coach.lastText, "Advice")
	}
	body := decodeJSON(t, rec)
	if body["text"] != "coach says: Advice" {
		t.Errorf("reply = %v, want coach reply", body["text"])
	}
}

func TestChatRejectsGet(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeCoach{}, nil)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /chat status = %d, want 405", rec.Code)
	}
}

func TestDemo(t *testing.T) {
	store := newFakeStore()
	coach := &fakeCoach{}
	s := newTestServer(store, coach, nil)

	req := httptest.NewRequest(http.MethodPost, "/demo", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /demo status = %d, want 200", rec.Code)
	}
	if coach.demoCalls != 1 {
		t.Errorf("demo loaded %d times, want 1", coach.demoCalls)
	}
	if len(store.history["s1"]) != 1 {
		t.Errorf("history has %d messages, want 1 confirmation", len(store.history["s1"]))
	}
	body := decodeJSON(t, rec)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "Sample data loaded") {
		t.Errorf("reply = %q, want sample-loaded confirmation", text)
	}
}

func TestReset(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, &fakeCoach{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /reset status = %d, want 200", rec.Code)
	}
	if len(store.cleared) != 1 || store.cleared[0] != "s1" {
		t.Errorf("cleared sessions = %v, want [s1]", store.cleared)
	}
}

func TestImportQueuedWithPublisher(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestServer(newFakeStore(), &fakeCoach{}, pub)

	csv := "date,description,amount\n2025-09-01,Salary September,50000\n"
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(csv))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /import status = %d, want 202", rec.Code)
	}
	if pub.sid != "s1" {
		t.Errorf("published session = %q, want s1", pub.sid)
	}
	body := decodeJSON(t, rec)
	if body["queued"] != true {
		t.Errorf("queued = %v, want true", body["queued"])
	}
}

func TestImportInlineWithoutPublisher(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, &fakeCoach{}, nil)

	csv := "date,description,amount\n2025-09-01,Salary September,50000\n2025-09-02,Grocery Store,-1200\n"
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(csv))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /import status = %d, want 200", rec.Code)
	}
	if len(store.txns["s1"]) != 2 {
		t.Errorf("stored %d transactions, want 2", len(store.txns["s1"]))
	}
	body := decodeJSON(t, rec)
	if body["queued"] != false {
		t.Errorf("queued = %v, want false", body["queued"])
	}
}

func TestImportRejectsEmptyBody(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeCoach{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("  \n"))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /import with empty body status = %d, want 400", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeCoach{}, nil)

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/init", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d denied, want first 60 allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request 61 allowed, want denied")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("other client denied, want allowed")
	}
}
