package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"fincoach/internal/importer"
)

const (
	sessionCookie = "sid"

	// Keep uploaded statements to something a browser would send.
	maxImportBytes = 2 << 20

	welcomeMessage    = "Hi! I’m **FinCoach**. I’ll ask a few quick questions to tailor advice in **₹**. You can tap **Use Sample Data** for an instant demo. Shall we begin?"
	demoLoadedHistory = "Sample data loaded ✅. I can analyze it now."
	demoLoadedReply   = "Sample data loaded ✅. I’ll run an analysis next. Type **Advice** or **Set weekly caps**."
)

// ensureSID returns the session id from the cookie, minting and setting
// a fresh one when absent.
func (s *Server) ensureSID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	s.ensureSID(w, r)

	if err := s.templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleInit greets a fresh session. The welcome message is recorded
// once so reloading the page does not repeat it in the history.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	sid := s.ensureSID(w, r)

	history, err := s.store.ListHistory(r.Context(), sid, 1)
	if err != nil {
		slog.ErrorContext(r.Context(), "History read failed", "error", err, "session_id", sid)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if len(history) == 0 {
		if err := s.store.AppendHistory(r.Context(), sid, "assistant", welcomeMessage); err != nil {
			slog.ErrorContext(r.Context(), "History write failed", "error", err, "session_id", sid)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": welcomeMessage})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sid := s.ensureSID(w, r)

	var req struct {
		Text string `json:"text"`
	}
	// A missing or malformed body falls through to the default greeting.
	_ = json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&req)

	reply, err := s.coach.Respond(r.Context(), sid, req.Text)
	if err != nil {
		slog.ErrorContext(r.Context(), "Chat failed", "error", err, "session_id", sid)
		http.Error(w, "chat error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": reply})
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sid := s.ensureSID(w, r)

	count, err := s.coach.LoadDemoData(r.Context(), sid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Demo load failed", "error", err, "session_id", sid)
		http.Error(w, "demo error", http.StatusInternalServerError)
		return
	}
	if err := s.store.AppendHistory(r.Context(), sid, "assistant", demoLoadedHistory); err != nil {
		slog.ErrorContext(r.Context(), "History write failed", "error", err, "session_id", sid)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Demo data loaded", "session_id", sid, "row_count", count)
	writeJSON(w, http.StatusOK, map[string]string{"text": demoLoadedReply})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sid := s.ensureSID(w, r)

	if err := s.store.ClearSession(r.Context(), sid); err != nil {
		slog.ErrorContext(r.Context(), "Reset failed", "error", err, "session_id", sid)
		http.Error(w, "reset error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleImport accepts a raw CSV statement. With a publisher configured
// the statement is queued for the worker; otherwise it is imported
// inline so single-binary deployments still work.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sid := s.ensureSID(w, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	csv := strings.TrimSpace(string(body))
	if csv == "" {
		http.Error(w, "empty statement", http.StatusBadRequest)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishImportStatement(r.Context(), sid, csv); err != nil {
			slog.ErrorContext(r.Context(), "Statement publish failed", "error", err, "session_id", sid)
			http.Error(w, "import error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "queued": true})
		return
	}

	rows, err := importer.Parse(csv)
	if err != nil {
		http.Error(w, "invalid statement", http.StatusUnprocessableEntity)
		return
	}
	txns := importer.Enrich(rows)
	if err := s.store.ReplaceTransactions(r.Context(), sid, txns); err != nil {
		slog.ErrorContext(r.Context(), "Statement import failed", "error", err, "session_id", sid)
		http.Error(w, "import error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Statement imported inline", "session_id", sid, "row_count", len(txns))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "queued": false, "count": len(txns)})
}
