// Package httpapi adapts the account service to HTTP/JSON. It parses
// requests into command and query calls, maps rejections to failure
// responses, and serializes events and state to the wire
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/chronicledb/chronicle"
	"github.com/chronicledb/chronicle/account"
)

type (
	Server struct {
		svc      *account.Service
		log      *zap.Logger
		validate *validator.Validate
	}

	commandRequest struct {
		Kind     string        `json:"kind" validate:"required,oneof=CreateAccount Deposit Withdraw CloseAccount"`
		EntityID string        `json:"entityId" validate:"required"`
		Fields   commandFields `json:"fields"`
	}

	commandFields struct {
		Owner          string `json:"owner"`
		InitialBalance int64  `json:"initialBalance"`
		Amount         int64  `json:"amount"`
	}

	commandResponse struct {
		Event    *eventDTO `json:"event,omitempty"`
		Reason   string    `json:"reason,omitempty"`
		Accepted bool      `json:"accepted"`
	}

	eventDTO struct {
		RecordedAt time.Time       `json:"recordedAt"`
		Kind       string          `json:"kind"`
		EntityID   string          `json:"entityId"`
		Payload    json.RawMessage `json:"payload"`
		Sequence   int64           `json:"sequenceNumber"`
	}

	stateResponse struct {
		EntityID string `json:"entityId"`
		Owner    string `json:"owner"`
		Balance  int64  `json:"balance"`
		IsActive bool   `json:"isActive"`
		Version  int64  `json:"version"`
	}

	historyResponse struct {
		EntityID string      `json:"entityId"`
		Events   []*eventDTO `json:"events"`
		Count    int         `json:"count"`
	}

	logResponse struct {
		Events []*eventDTO `json:"events"`
		Total  int64       `json:"total"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func NewServer(svc *account.Service, logger *zap.Logger) *Server {
	return &Server{
		svc:      svc,
		log:      logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes returns the adapter's handler tree
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/commands", s.handleCommand)
	mux.HandleFunc("GET /v1/accounts/{id}", s.handleState)
	mux.HandleFunc("GET /v1/accounts/{id}/events", s.handleHistory)
	mux.HandleFunc("GET /v1/events", s.handleLog)
	return s.withRequestLog(mux)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "malformed request body",
		})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
		})
		return
	}

	ctx := r.Context()
	id := chronicle.ID(req.EntityID)

	var (
		ev  *chronicle.Event
		err error
	)
	switch req.Kind {
	case "CreateAccount":
		ev, err = s.svc.Open(ctx, id, req.Fields.Owner, req.Fields.InitialBalance)
	case "Deposit":
		ev, err = s.svc.Deposit(ctx, id, req.Fields.Amount)
	case "Withdraw":
		ev, err = s.svc.Withdraw(ctx, id, req.Fields.Amount)
	case "CloseAccount":
		ev, err = s.svc.Close(ctx, id)
	}

	if err != nil {
		s.writeCommandError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{
		Accepted: true,
		Event:    toDTO(ev),
	})
}

// writeCommandError maps the error taxonomy to wire responses:
// rejections are unprocessable, retry exhaustion is a conflict,
// everything else is internal
func (s *Server) writeCommandError(
	w http.ResponseWriter, req commandRequest, err error,
) {
	if rej, ok := chronicle.AsRejection(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, commandResponse{
			Accepted: false,
			Reason:   rej.Code,
		})
		return
	}
	if errors.Is(err, chronicle.ErrBusy) {
		writeJSON(w, http.StatusConflict, commandResponse{
			Accepted: false,
			Reason:   "busy",
		})
		return
	}

	s.log.Error("command failed",
		zap.String("kind", req.Kind),
		zap.String("entity_id", req.EntityID),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "internal error",
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	proj, err := s.svc.CurrentState(r.Context(), chronicle.ID(id))
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		EntityID: id,
		Owner:    proj.State.Owner,
		Balance:  proj.State.Balance,
		IsActive: proj.State.Active,
		Version:  proj.Version,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	kinds := lo.Map(r.URL.Query()["kind"],
		func(k string, _ int) chronicle.EventType {
			return chronicle.EventType(k)
		},
	)

	evs, err := s.svc.HistoryByKind(r.Context(), chronicle.ID(id), kinds...)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		EntityID: id,
		Events:   lo.Map(evs, toIndexedDTO),
		Count:    len(evs),
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	evs, total, err := s.svc.AllEvents(r.Context())
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logResponse{
		Events: lo.Map(evs, toIndexedDTO),
		Total:  total,
	})
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	s.log.Error("query failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "internal error",
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func toDTO(ev *chronicle.Event) *eventDTO {
	return &eventDTO{
		RecordedAt: ev.RecordedAt,
		Kind:       string(ev.Type),
		EntityID:   string(ev.EntityID),
		Payload:    ev.Data,
		Sequence:   ev.Sequence,
	}
}

func toIndexedDTO(ev *chronicle.Event, _ int) *eventDTO {
	return toDTO(ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
