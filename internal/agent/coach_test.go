package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"fincoach/internal/core"
)

type memStore struct {
	profiles map[string]string
	txns     []core.Transaction
	caps     []core.Cap
	history  []core.ChatMessage
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[string]string)}
}

func (m *memStore) LoadProfile(context.Context, string) (map[string]string, error) {
	out := make(map[string]string, len(m.profiles))
	for k, v := range m.profiles {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveProfileField(_ context.Context, _ string, key, value string) error {
	m.profiles[key] = value
	return nil
}

func (m *memStore) ReplaceTransactions(_ context.Context, _ string, txns []core.Transaction) error {
	m.txns = txns
	return nil
}

func (m *memStore) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return m.txns, nil
}

func (m *memStore) SetCap(_ context.Context, _ string, category string, weekly float64) error {
	return m.SetCaps(nil, "", []core.Cap{{Category: category, Weekly: weekly}})
}

func (m *memStore) SetCaps(_ context.Context, _ string, caps []core.Cap) error {
	for _, c := range caps {
		c.Category = strings.ToLower(strings.TrimSpace(c.Category))
		replaced := false
		for i := range m.caps {
			if m.caps[i].Category == c.Category {
				m.caps[i].Weekly = c.Weekly
				replaced = true
			}
		}
		if !replaced {
			m.caps = append(m.caps, c)
		}
	}
	return nil
}

func (m *memStore) ListCaps(context.Context, string) ([]core.Cap, error) {
	return m.caps, nil
}

func (m *memStore) AppendHistory(_ context.Context, _ string, role, content string) error {
	m.history = append(m.history, core.ChatMessage{Role: role, Content: content})
	return nil
}

func (m *memStore) ListHistory(_ context.Context, _ string, limit int) ([]core.ChatMessage, error) {
	if limit > 0 && len(m.history) > limit {
		return m.history[len(m.history)-limit:], nil
	}
	return m.history, nil
}

func (m *memStore) ClearSession(context.Context, string) error {
	m.profiles = make(map[string]string)
	m.txns = nil
	m.caps = nil
	m.history = nil
	return nil
}

func newTestCoach(store Store) *Coach {
	return New(Config{
		Model:        "claude-sonnet-4-20250514",
		MaxRounds:    10,
		HistoryLimit: 80,
		Currency:     core.Formatter{Symbol: "₹"},
	}, store)
}

func dispatchJSON(t *testing.T, c *Coach, name, input string) map[string]any {
	t.Helper()
	out, err := c.dispatch(context.Background(), "s1", name, json.RawMessage(input))
	if err != nil {
		t.Fatalf("dispatch(%s) error = %v", name, err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal %s result: %v", name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %s result: %v", name, err)
	}
	return m
}

func TestGetStateEmptySession(t *testing.T) {
	c := newTestCoach(newMemStore())

	state := dispatchJSON(t, c, "get_state", `{}`)

	if state["has_transactions"] != false {
		t.Error("has_transactions = true for empty session")
	}
	missing, ok := state["missing"].([]any)
	if !ok {
		t.Fatalf("missing is %T, want array", state["missing"])
	}
	if len(missing) != len(core.ProfileFields) {
		t.Errorf("missing has %d entries, want %d", len(missing), len(core.ProfileFields))
	}
	first := missing[0].(map[string]any)
	if first["field"] != "starting_balance" {
		t.Errorf("first missing field = %v, want starting_balance", first["field"])
	}
}

func TestSetProfileFieldNumber(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	out := dispatchJSON(t, c, "set_profile_field", `{"field":"monthly_income","value":"80,000"}`)
	if out["ok"] != true {
		t.Fatalf("set_profile_field result = %v, want ok", out)
	}
	if store.profiles["monthly_income"] != "80000" {
		t.Errorf("stored value = %q, want %q", store.profiles["monthly_income"], "80000")
	}
}

func TestSetProfileFieldNumberFromJSONNumber(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	dispatchJSON(t, c, "set_profile_field", `{"field":"goal_target","value":50000}`)
	if store.profiles["goal_target"] != "50000" {
		t.Errorf("stored value = %q, want %q", store.profiles["goal_target"], "50000")
	}
}

func TestSetProfileFieldRejectsNonNumber(t *testing.T) {
	c := newTestCoach(newMemStore())

	out := dispatchJSON(t, c, "set_profile_field", `{"field":"monthly_income","value":"a lot"}`)
	if out["ok"] != false {
		t.Fatalf("result = %v, want ok=false", out)
	}
	if out["error"] != "Expected a number" {
		t.Errorf("error = %v, want %q", out["error"], "Expected a number")
	}
}

func TestSetProfileFieldUnknown(t *testing.T) {
	c := newTestCoach(newMemStore())

	out := dispatchJSON(t, c, "set_profile_field", `{"field":"favorite_color","value":"blue"}`)
	if out["ok"] != false {
		t.Fatalf("result = %v, want ok=false", out)
	}
	if out["error"] != "Unknown field favorite_color" {
		t.Errorf("error = %v, want unknown-field message", out["error"])
	}
}

func TestSetProfileFieldNoDebtClearsEMI(t *testing.T) {
	store := newMemStore()
	store.profiles["monthly_emi"] = "4500"
	c := newTestCoach(store)

	dispatchJSON(t, c, "set_profile_field", `{"field":"has_debt","value":"no"}`)

	if store.profiles["has_debt"] != "false" {
		t.Errorf("has_debt = %q, want %q", store.profiles["has_debt"], "false")
	}
	if store.profiles["monthly_emi"] != "0" {
		t.Errorf("monthly_emi = %q, want %q after clearing debt", store.profiles["monthly_emi"], "0")
	}
}

func TestSetCapAndList(t *testing.T) {
	c := newTestCoach(newMemStore())

	out := dispatchJSON(t, c, "set_cap", `{"category":"food & dining","weekly":2000}`)
	if out["ok"] != true {
		t.Fatalf("set_cap result = %v, want ok", out)
	}

	out = dispatchJSON(t, c, "set_caps_bulk", `{"items":[{"category":"transport","weekly":800},{"category":"shopping","weekly":1200}]}`)
	caps := out["caps"].([]any)
	if len(caps) != 3 {
		t.Fatalf("caps after bulk set = %d, want 3", len(caps))
	}

	out = dispatchJSON(t, c, "list_caps", `{}`)
	if _, hasOK := out["ok"]; hasOK {
		t.Error("list_caps result should not carry ok flag")
	}
	if len(out["caps"].([]any)) != 3 {
		t.Errorf("list_caps returned %d caps, want 3", len(out["caps"].([]any)))
	}
}

func TestLoadDemoDataAndAnalyze(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	out := dispatchJSON(t, c, "load_demo_data", `{}`)
	if out["ok"] != true {
		t.Fatalf("load_demo_data result = %v, want ok", out)
	}
	if out["count"].(float64) != 12 {
		t.Errorf("count = %v, want 12", out["count"])
	}

	analysis := dispatchJSON(t, c, "analyze", `{}`)
	summary, _ := analysis["summary"].(string)
	if !strings.HasPrefix(summary, "**Overview**") {
		t.Errorf("summary = %q, want transaction-based overview", summary)
	}
	if _, ok := analysis["top3"]; !ok {
		t.Error("transaction-based analysis missing top3")
	}
}

func TestAnalyzeFallsBackToProfile(t *testing.T) {
	store := newMemStore()
	store.profiles["monthly_income"] = "80000"
	c := newTestCoach(store)

	analysis := dispatchJSON(t, c, "analyze", `{}`)
	summary, _ := analysis["summary"].(string)
	if !strings.HasPrefix(summary, "**Your Plan (profile-based)**") {
		t.Errorf("summary = %q, want profile-based plan", summary)
	}
}

func TestResetState(t *testing.T) {
	store := newMemStore()
	store.profiles["monthly_income"] = "80000"
	store.caps = []core.Cap{{Category: "transport", Weekly: 800}}
	c := newTestCoach(store)

	out := dispatchJSON(t, c, "reset_state", `{}`)
	if out["ok"] != true {
		t.Fatalf("reset_state result = %v, want ok", out)
	}
	if len(store.profiles) != 0 || len(store.caps) != 0 {
		t.Error("reset_state left session data behind")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	c := newTestCoach(newMemStore())

	out := dispatchJSON(t, c, "transfer_funds", `{}`)
	if out["error"] != "unknown tool" {
		t.Errorf("result = %v, want unknown tool error", out)
	}
}

func TestRespondWithoutAPIKey(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	if c.Enabled() {
		t.Fatal("coach reports enabled without an API key")
	}

	reply, err := c.Respond(context.Background(), "s1", "hello")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !strings.Contains(reply, "ANTHROPIC_API_KEY") {
		t.Errorf("reply = %q, want disabled notice", reply)
	}

	if len(store.history) != 2 {
		t.Fatalf("history has %d messages, want user+assistant", len(store.history))
	}
	if store.history[0].Role != "user" || store.history[1].Role != "assistant" {
		t.Errorf("history roles = %q/%q, want user/assistant", store.history[0].Role, store.history[1].Role)
	}
}

func TestRespondSampleKeywordLoadsDemo(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	if _, err := c.Respond(context.Background(), "s1", "load the Sample data please"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(store.txns) != 12 {
		t.Errorf("stored %d transactions after sample request, want 12", len(store.txns))
	}
}

func TestRespondBlankMessageDefaultsToHi(t *testing.T) {
	store := newMemStore()
	c := newTestCoach(store)

	if _, err := c.Respond(context.Background(), "s1", "   "); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if store.history[0].Content != "hi" {
		t.Errorf("recorded user message = %q, want %q", store.history[0].Content, "hi")
	}
}
