package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/qurani-maai/quranchat/core/errors"
	"github.com/qurani-maai/quranchat/core/intent"
	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/session"
	"github.com/qurani-maai/quranchat/core/textnorm"
	"github.com/qurani-maai/quranchat/internal/chat"
	"github.com/qurani-maai/quranchat/internal/logging"
	"github.com/qurani-maai/quranchat/internal/server"
)

// Version is reported by /health.
var Version = "dev"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Chapters int    `json:"chapters"`
	Cached   int    `json:"cached_chapters"`
	Clients  int    `json:"websocket_clients"`
}

// CreateSessionRequest is the optional body of POST /sessions.
type CreateSessionRequest struct {
	Greet bool `json:"greet"`
}

// MessageRequest is the body of POST /sessions/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// ToolRequest is the body of POST /sessions/{id}/tools.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Ref  quran.VerseRef `json:"ref"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Chapters: len(s.engine.Chapters()),
		Cached:   s.engine.CachedChapters(),
		Clients:  s.hub.ClientCount(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.engine.Start(req.Greet)
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	recent, err := s.engine.Recent()
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	if recent == nil {
		recent = []session.RecentEntry{}
	}
	respondList(w, recent, len(recent))
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Resume()
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Session(r.PathValue("id"))
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, sess)
}

func (s *Server) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Switch(r.PathValue("id"))
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, sess)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := server.LimitRunes(server.SanitizeUserInput(req.Text), maxUtteranceRunes)
	if text == "" {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "text is required")
		return
	}

	res, err := s.engine.Handle(r.Context(), r.PathValue("id"), text)
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	s.afterResult(res)
	respond(w, http.StatusOK, res)
}

// afterResult broadcasts completion progress to websocket clients when a
// chapter was displayed in full.
func (s *Server) afterResult(res chat.Result) {
	if res.Kind != intent.KindFullChapter {
		return
	}
	p, err := s.engine.Progress()
	if err != nil {
		logging.Warn("progress unavailable", "error", err)
		return
	}
	s.hub.Broadcast(Event{Type: EventProgress, Progress: &p})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req ToolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tool, ok := chat.ParseTool(req.Tool)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "unknown tool "+strconv.Quote(req.Tool))
		return
	}
	out, err := s.engine.RunTool(r.Context(), r.PathValue("id"), req.Ref, tool)
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleCommentary(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r.PathValue("chapter"), r.PathValue("verse"))
	if !ok {
		return
	}
	c, err := s.engine.Commentary(r.Context(), ref)
	if err != nil {
		respondFailure(w, r, err, chat.CommentaryFailedNotice)
		return
	}
	respond(w, http.StatusOK, c)
}

// handleFocus serves ?session=<id> (last read or random verse),
// ?chapter=&verse= (that verse) and ?chapter=&verse=&dir=next|prev.
func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		f   chat.Focus
		err error
	)
	switch {
	case q.Get("chapter") != "":
		ref, ok := pathRef(w, q.Get("chapter"), q.Get("verse"))
		if !ok {
			return
		}
		switch q.Get("dir") {
		case "":
			f, err = s.engine.FocusAt(r.Context(), ref)
		case "next":
			f, err = s.engine.Step(r.Context(), ref, 1)
		case "prev":
			f, err = s.engine.Step(r.Context(), ref, -1)
		default:
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", "dir must be next or prev")
			return
		}
	case q.Get("session") != "":
		f, err = s.engine.Focus(r.Context(), q.Get("session"))
	default:
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "session or chapter is required")
		return
	}
	if err != nil {
		respondFailure(w, r, err, chat.FocusFailedNotice)
		return
	}
	respond(w, http.StatusOK, f)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Progress()
	if err != nil {
		respondFailure(w, r, err, "")
		return
	}
	respond(w, http.StatusOK, p)
}

// pathRef parses a chapter and verse, accepting Eastern Arabic digits.
func pathRef(w http.ResponseWriter, chapter, verse string) (quran.VerseRef, bool) {
	chapter = textnorm.ASCIIDigits(chapter)
	n, err := strconv.Atoi(textnorm.ASCIIDigits(verse))
	if err != nil || chapter == "" {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "chapter and numeric verse are required")
		return quran.VerseRef{}, false
	}
	return quran.VerseRef{ChapterID: chapter, Verse: n}, true
}

// decodeJSON reads a JSON body into v, responding with an error and
// returning false when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !server.ValidateContentType(r.Header.Get("Content-Type"), []string{"application/json"}) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondFailure maps err onto a status and code. notice, when set,
// replaces the message of corpus failures.
func respondFailure(w http.ResponseWriter, r *http.Request, err error, notice string) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", chat.UnexpectedErrorNotice
	switch {
	case errors.Is(err, errors.ErrFetch), errors.Is(err, errors.ErrMalformed):
		// Checked first: a fetch error may wrap the source's not-found.
		status, code, message = http.StatusBadGateway, "FETCH_FAILED", err.Error()
		if notice != "" {
			message = notice
		}
	case errors.Is(err, errors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, errors.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "INVALID_INPUT", err.Error()
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondError(w, status, code, message)
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	writeResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
