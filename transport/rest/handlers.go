package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

type gameSession interface {
	Play(row, col int) error
	NewGame() error
	Snapshot() (entity.Snapshot, error)
	Role() (entity.Mark, bool, error)
}

type moveRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type gameResponse struct {
	entity.Snapshot
	You   entity.Mark `json:"you,omitempty"`
	Error string      `json:"error,omitempty"`
}

type handlers struct {
	logger  *slog.Logger
	session gameSession
}

func newHandlers(logger *slog.Logger, session gameSession) *handlers {
	return &handlers{
		logger:  logger.With("component", "rest"),
		session: session,
	}
}

func (that *handlers) snapshot(w http.ResponseWriter, _ *http.Request) {
	that.respond(w, http.StatusOK, nil)
}

func (that *handlers) move(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "move")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Row == nil || req.Col == nil {
		log.Debug("bad move request", "error", err)
		http.Error(w, "body must be {\"row\": r, \"col\": c}", http.StatusBadRequest)
		return
	}

	err := that.session.Play(*req.Row, *req.Col)
	if err != nil {
		log.Debug("move rejected", "row", *req.Row, "col", *req.Col, "error", err)
	}

	that.respond(w, statusFor(err), err)
}

func (that *handlers) newGame(w http.ResponseWriter, _ *http.Request) {
	err := that.session.NewGame()
	if err != nil {
		that.logger.Error("failed to start a new game", "method", "newGame", "error", err)
	}

	that.respond(w, statusFor(err), err)
}

// respond - renders the current snapshot with the outcome of the request.
func (that *handlers) respond(w http.ResponseWriter, status int, cause error) {
	snapshot, err := that.session.Snapshot()
	if err != nil {
		http.Error(w, "session is closed", http.StatusGone)
		return
	}

	resp := gameResponse{Snapshot: snapshot}
	if role, ok, err := that.session.Role(); err == nil && ok {
		resp.You = role
	}

	if cause != nil {
		resp.Error = cause.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err = json.NewEncoder(w).Encode(resp); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperror.ErrLinkClosed):
		return http.StatusGone
	case errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
