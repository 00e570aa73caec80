package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatekeeper/pkg/logger"
	"github.com/dmitrymomot/gatekeeper/pkg/mailauth"
	"github.com/dmitrymomot/gatekeeper/pkg/ratelimit"
	"github.com/dmitrymomot/gatekeeper/pkg/throttle"
)

type handlers struct {
	set    *throttle.Set
	guard  *mailauth.Guard
	logger *slog.Logger
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeLimited answers a blocked request; fail-closed outages get 503.
func writeLimited(w http.ResponseWriter, _ *http.Request, d ratelimit.Decision) {
	code := http.StatusTooManyRequests
	if d.Reason == ratelimit.ReasonUnavailable {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, errorResponse{Error: string(d.Reason), RetryAfter: max(1, d.RetryAfterSeconds())})
}

func (h *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   r.URL.Query().Get("q"),
		"results": []string{},
	})
}

func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "webhook accepted",
		logger.Component("gatekeeperd"),
		slog.String("source", chi.URLParam(r, "source")),
	)
	w.WriteHeader(http.StatusAccepted)
}

type mailAuthRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

func (h *handlers) mailAuth(w http.ResponseWriter, r *http.Request) {
	protocol, err := ratelimit.ParseProtocol(chi.URLParam(r, "protocol"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req mailAuthRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Account) == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	err = h.guard.Authenticate(r.Context(), protocol, req.Account, req.Password)
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if be, ok := ratelimit.AsBlocked(err); ok {
		code := http.StatusTooManyRequests
		if be.Reason == ratelimit.ReasonUnavailable {
			code = http.StatusServiceUnavailable
		}
		retry := max(1, be.RetryAfterSeconds())
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(w, code, errorResponse{Error: string(be.Reason), RetryAfter: retry})
		return
	}
	if errors.Is(err, mailauth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "authentication failed")
}

func (h *handlers) consumers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"consumers": h.set.Names()})
}

type windowResponse struct {
	Window    string    `json:"window"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type statusResponse struct {
	Consumer   string           `json:"consumer"`
	Identifier string           `json:"identifier"`
	Locked     bool             `json:"locked"`
	RetryAfter int              `json:"retry_after,omitempty"`
	Windows    []windowResponse `json:"windows"`
}

func (h *handlers) limitStatus(w http.ResponseWriter, r *http.Request) {
	consumer, id := chi.URLParam(r, "consumer"), chi.URLParam(r, "identifier")
	l, err := h.set.Limiter(consumer)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := statusResponse{Consumer: consumer, Identifier: id}
	if left, ok := l.Locked(r.Context(), id); ok {
		resp.Locked = true
		resp.RetryAfter = ratelimit.Decision{RetryAfter: left}.RetryAfterSeconds()
	}
	for _, ws := range l.Status(r.Context(), id) {
		resp.Windows = append(resp.Windows, windowResponse{
			Window:    ws.Window.String(),
			Limit:     ws.Limit,
			Used:      ws.Used,
			Remaining: ws.Remaining,
			ResetAt:   ws.ResetAt.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) limitClear(w http.ResponseWriter, r *http.Request) {
	l, err := h.set.Limiter(chi.URLParam(r, "consumer"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := l.Clear(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) mailClear(w http.ResponseWriter, r *http.Request) {
	protocol, err := ratelimit.ParseProtocol(chi.URLParam(r, "protocol"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	id := ratelimit.MailKey(protocol, chi.URLParam(r, "account"))
	if err := h.set.MailAuth().ClearAttempts(r.Context(), protocol, id); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte("Bearer " + token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
