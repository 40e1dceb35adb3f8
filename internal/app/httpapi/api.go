// Package httpapi exposes the REST handlers and translates HTTP requests
// into the vote and notification services.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/marcelojr/cineclube/internal/app/hub"
	"github.com/marcelojr/cineclube/internal/app/notify"
	"github.com/marcelojr/cineclube/internal/app/vote"
	"github.com/marcelojr/cineclube/internal/domain"
	"github.com/marcelojr/cineclube/internal/platform/auth"
	"github.com/marcelojr/cineclube/internal/platform/metrics"
	"github.com/marcelojr/cineclube/internal/platform/ratelimit"
)

const (
	headerUser  = "X-User-ID"
	headerAdmin = "X-Admin-Token"
)

// API bundles the HTTP handlers bound to the contest, the dispatcher and the
// connection registry.
type API struct {
	votes       *vote.Service
	winners     *vote.WinnerCache
	dispatcher  *notify.Dispatcher
	registry    *hub.Registry
	logger      *slog.Logger
	idleTimeout time.Duration
}

func New(votes *vote.Service, winners *vote.WinnerCache, dispatcher *notify.Dispatcher, registry *hub.Registry, logger *slog.Logger, idleTimeout time.Duration) *API {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &API{
		votes:       votes,
		winners:     winners,
		dispatcher:  dispatcher,
		registry:    registry,
		logger:      logger,
		idleTimeout: idleTimeout,
	}
}

func (a *API) Register(mux *http.ServeMux) {
	// Routes stay centralized so tests can mount the same mux.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/windows", a.handleWindows)
	mux.HandleFunc("/windows/", a.handleWindowDetails)
	mux.HandleFunc("/votes", a.handleVotes)
	mux.HandleFunc("/winner", a.handleWinner)
	mux.HandleFunc("/rollover", a.handleRollover)
	mux.HandleFunc("/notifications", a.handleNotifications)
	mux.HandleFunc("/notifications/", a.handleNotificationDetails)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type openWindowRequest struct {
	Title string `json:"title"`
}

func (a *API) handleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req openWindowRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
	}

	capability := auth.Capability(r.Header.Get(headerAdmin))
	window, err := a.votes.OpenWindow(r.Context(), capability, req.Title)
	if err != nil {
		a.logger.Warn("failed to open window", "err", err)
		writeError(w, err)
		return
	}

	a.logger.Info("vote window opened", "window", window.ID, "starts_at", window.StartsAt)
	writeJSON(w, http.StatusCreated, window)
}

func (a *API) handleWindowDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/windows/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if len(parts) == 1 && parts[0] == "active" {
		a.getActiveWindow(w, r)
		return
	}

	id := domain.WindowID(parts[0])
	switch {
	case len(parts) == 2 && parts[1] == "options":
		a.getOptions(w, r, id)
	case len(parts) == 2 && parts[1] == "result":
		a.getResult(w, r, id)
	case len(parts) == 2 && parts[1] == "live":
		a.getLiveStandings(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) getActiveWindow(w http.ResponseWriter, r *http.Request) {
	window, err := a.votes.ActiveWindow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (a *API) getOptions(w http.ResponseWriter, r *http.Request, id domain.WindowID) {
	options, err := a.votes.Options(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request, id domain.WindowID) {
	result, err := a.votes.Result(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to rank window", "err", err, "window", id)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) getLiveStandings(w http.ResponseWriter, r *http.Request, id domain.WindowID) {
	standings, err := a.votes.LiveStandings(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to read live standings", "err", err, "window", id)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

type voteRequest struct {
	WindowID    string `json:"window_id"`
	CandidateID string `json:"candidate_id"`
}

func (a *API) handleVotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveVoteRequest("invalid_payload")
		a.logger.Warn("invalid vote payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user := domain.UserID(r.Header.Get(headerUser))
	candidate, err := a.votes.CastVote(r.Context(), user, domain.WindowID(req.WindowID), domain.CandidateID(req.CandidateID))
	if err != nil {
		status := voteStatusFromError(err)
		metrics.ObserveVoteRequest(status)
		a.logger.Warn("vote rejected", "err", err, "user", user, "window", req.WindowID, "status", status)
		writeError(w, err)
		return
	}

	metrics.ObserveVoteRequest("accepted")
	a.logger.Info("vote accepted", "user", user, "window", req.WindowID, "candidate", req.CandidateID)
	writeJSON(w, http.StatusCreated, candidate)
}

func (a *API) handleWinner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	winner, err := a.winners.LastCompletedWinner(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winner)
}

// handleRollover is the scheduler's cycle-rollover entrypoint: it only drops
// the winner memo, the next read recomputes.
func (a *API) handleRollover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	capability := auth.Capability(r.Header.Get(headerAdmin))
	if err := a.votes.RequireAdmin(capability); err != nil {
		writeError(w, err)
		return
	}

	a.winners.Invalidate()
	a.logger.Info("winner cache invalidated for cycle rollover")
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

type dispatchRequest struct {
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	RelatedID string `json:"related_id"`
}

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.dispatchNotification(w, r)
	case http.MethodGet:
		a.listNotifications(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) dispatchNotification(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	notification, err := a.dispatcher.Dispatch(r.Context(), domain.UserID(req.UserID), domain.NotificationType(req.Type), req.RelatedID)
	if err != nil {
		a.logger.Warn("failed to dispatch notification", "err", err, "user", req.UserID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.Header.Get(headerUser))
	notifications, err := a.dispatcher.ListForUser(r.Context(), user, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (a *API) handleNotificationDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/notifications/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "stream" && r.Method == http.MethodGet:
		a.handleStream(w, r)
	case len(parts) == 2 && parts[1] == "read" && r.Method == http.MethodPost:
		a.markNotificationRead(w, r, domain.NotificationID(parts[0]))
	default:
		http.NotFound(w, r)
	}
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request, id domain.NotificationID) {
	user := domain.UserID(r.Header.Get(headerUser))
	if err := a.dispatcher.MarkRead(r.Context(), id, user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, vote.ErrInvalidSchedule), errors.Is(err, vote.ErrNoCandidates), errors.Is(err, vote.ErrEmptyWindow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, vote.ErrWindowExists), errors.Is(err, vote.ErrWindowInactive), errors.Is(err, vote.ErrDuplicateVote):
		status = http.StatusConflict
	case errors.Is(err, vote.ErrWindowNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vote.ErrUnknownCandidate), errors.Is(err, vote.ErrMissingUser), errors.Is(err, notify.ErrInvalidEvent):
		status = http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		status = http.StatusTooManyRequests
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func voteStatusFromError(err error) string {
	switch {
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		return "rate_limited"
	case errors.Is(err, vote.ErrWindowInactive):
		return "inactive"
	case errors.Is(err, vote.ErrDuplicateVote):
		return "duplicate"
	case errors.Is(err, vote.ErrUnknownCandidate), errors.Is(err, vote.ErrMissingUser):
		return "invalid"
	case errors.Is(err, vote.ErrWindowNotFound):
		return "not_found"
	default:
		return "error"
	}
}
