package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborops/terminal-core/internal/auth"
	"github.com/harborops/terminal-core/internal/gate"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/passes"
	"github.com/harborops/terminal-core/internal/queue"
	"github.com/harborops/terminal-core/internal/ratelimit"
	"github.com/harborops/terminal-core/internal/store"
	"github.com/harborops/terminal-core/internal/yard"
)

// Server exposes the engine operations over HTTP. The engine itself stays
// transport-agnostic; everything here is decode, dispatch, encode.
type Server struct {
	Store     store.Store
	Allocator *yard.Allocator
	Movements *yard.MovementTracker
	Validator *gate.Validator
	Permits   *gate.PermitService
	Passes    *passes.Issuer
	Queue     *queue.Service
	Log       zerolog.Logger

	// JWTSecret enables bearer-token auth when non-empty.
	JWTSecret string
	// Limiter, when set, throttles the gate and queue endpoints.
	Limiter *ratelimit.Limiter
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		if s.JWTSecret != "" {
			r.Use(auth.Middleware(s.JWTSecret))
		}

		r.Post("/yard/allocate", s.handleAllocate)
		r.Post("/yard/release", s.handleRelease)
		r.Get("/yard/locations", s.handleListLocations)

		r.Post("/cargo/move", s.handleMove)
		r.Post("/cargo/verify-seal", s.handleVerifySeal)

		r.Post("/passes", s.handleIssuePass)
		r.Post("/passes/{id}/revoke", s.handleRevokePass)
		r.Post("/permits", s.handleIssuePermit)

		r.Group(func(r chi.Router) {
			if s.Limiter != nil {
				r.Use(s.Limiter.Middleware(ratelimit.DefaultKeyFunc(true)))
			}
			r.Post("/gate/validate", s.handleValidate)
			r.Post("/gate/permits/{id}/consume", s.handleConsumePermit)
			r.Post("/queue/entries", s.handleEnqueue)
			r.Post("/queue/entries/{id}/authorize", s.handleAuthorizeEntry)
			r.Post("/queue/entries/{id}/reject", s.handleRejectEntry)
			r.Get("/queue/stats", s.handleQueueStats)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type allocateBody struct {
	LocationID uuid.UUID `json:"locationId"`
	CargoID    uuid.UUID `json:"cargoId"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var body allocateBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Allocator.Allocate(r.Context(), body.LocationID, body.CargoID); err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"locationId": body.LocationID,
		"cargoId":    body.CargoID,
		"occupied":   true,
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var body allocateBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Allocator.Release(r.Context(), body.LocationID, body.CargoID); err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"locationId": body.LocationID,
		"occupied":   false,
	})
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.Store.ListYardLocations(r.Context(), r.URL.Query().Get("zone"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"locations": locations})
}

type moveBody struct {
	CargoID       uuid.UUID           `json:"cargoId"`
	DestinationID uuid.UUID           `json:"destinationId"`
	OriginID      *uuid.UUID          `json:"originId"`
	MovementType  models.MovementType `json:"movementType"`
	Date          *time.Time          `json:"date"`
	Notes         string              `json:"notes"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body moveBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch body.MovementType {
	case models.MovementTraction, models.MovementTransfer, models.MovementDispatch:
	default:
		respondError(w, http.StatusBadRequest, "invalid movementType")
		return
	}
	date := time.Now().UTC()
	if body.Date != nil {
		date = *body.Date
	}
	status, err := s.Movements.Move(r.Context(), yard.MoveInput{
		CargoID:       body.CargoID,
		DestinationID: body.DestinationID,
		OriginID:      body.OriginID,
		Type:          body.MovementType,
		Date:          date,
		Notes:         body.Notes,
		Actor:         actorFrom(r),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cargoId": body.CargoID,
		"status":  status,
	})
}

type verifySealBody struct {
	CargoID          uuid.UUID            `json:"cargoId"`
	SealNumber       string               `json:"sealNumber"`
	Condition        models.SealCondition `json:"condition"`
	VerificationType string               `json:"verificationType"`
}

func (s *Server) handleVerifySeal(w http.ResponseWriter, r *http.Request) {
	var body verifySealBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.Movements.VerifySeal(r.Context(), yard.SealInput{
		CargoID:    body.CargoID,
		SealNumber: body.SealNumber,
		Condition:  body.Condition,
		Type:       body.VerificationType,
		Actor:      actorFrom(r),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "verified"})
}

type validateBody struct {
	PassID  uuid.UUID         `json:"passId"`
	Action  models.GateAction `json:"action"`
	CargoID *uuid.UUID        `json:"cargoId"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body validateBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision, err := s.Validator.Validate(r.Context(), gate.ValidateInput{
		PassID:  body.PassID,
		Action:  body.Action,
		CargoID: body.CargoID,
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

func (s *Server) handleConsumePermit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	permit, err := s.Permits.Consume(r.Context(), id, actorFrom(r))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, permit)
}

type issuePermitBody struct {
	PassID     uuid.UUID         `json:"passId"`
	PermitType models.PermitType `json:"permitType"`
	CargoID    *uuid.UUID        `json:"cargoId"`
}

func (s *Server) handleIssuePermit(w http.ResponseWriter, r *http.Request) {
	var body issuePermitBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	permit, err := s.Permits.Issue(r.Context(), gate.IssueInput{
		PassID:  body.PassID,
		Type:    body.PermitType,
		CargoID: body.CargoID,
		Actor:   actorFrom(r),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, permit)
}

type issuePassBody struct {
	PassType       models.PassType `json:"passType"`
	HolderName     string          `json:"holderName"`
	HolderDocument string          `json:"holderDocument"`
	PlateNumber    string          `json:"plateNumber"`
	ValidFrom      time.Time       `json:"validFrom"`
	ValidUntil     time.Time       `json:"validUntil"`
}

func (s *Server) handleIssuePass(w http.ResponseWriter, r *http.Request) {
	var body issuePassBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pass, err := s.Passes.Issue(r.Context(), passes.IssueInput{
		Type:           body.PassType,
		HolderName:     body.HolderName,
		HolderDocument: body.HolderDocument,
		PlateNumber:    body.PlateNumber,
		ValidFrom:      body.ValidFrom,
		ValidUntil:     body.ValidUntil,
		Actor:          actorFrom(r),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pass)
}

type revokePassBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRevokePass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body revokePassBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pass, err := s.Passes.Revoke(r.Context(), id, body.Reason, actorFrom(r))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pass)
}

type enqueueBody struct {
	TruckID       string           `json:"truckId"`
	AppointmentID *uuid.UUID       `json:"appointmentId"`
	Zone          models.QueueZone `json:"zone"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var body enqueueBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.Queue.Enqueue(r.Context(), queue.EnqueueInput{
		TruckID:       body.TruckID,
		AppointmentID: body.AppointmentID,
		Zone:          body.Zone,
		Actor:         actorFrom(r),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleAuthorizeEntry(w http.ResponseWriter, r *http.Request) {
	s.closeEntry(w, r, s.Queue.Authorize)
}

func (s *Server) handleRejectEntry(w http.ResponseWriter, r *http.Request) {
	s.closeEntry(w, r, s.Queue.Reject)
}

func (s *Server) closeEntry(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID, actor string) (models.QueueEntry, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entry, err := fn(r.Context(), id, actorFrom(r))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	zone := models.QueueZone(r.URL.Query().Get("zone"))
	if zone != models.ZonePregate && zone != models.ZoneZOE {
		respondError(w, http.StatusBadRequest, "invalid zone")
		return
	}
	stats, err := s.Queue.Statistics(r.Context(), zone)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func actorFrom(r *http.Request) string {
	if id := auth.FromContext(r.Context()); id != nil {
		return id.Subject
	}
	return "anonymous"
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case isConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidPassData),
		errors.Is(err, models.ErrInvalidPermitData),
		errors.Is(err, models.ErrInvalidQueueData):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.Log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func isConflict(err error) bool {
	for _, conflict := range []error{
		models.ErrLocationOccupied,
		models.ErrLocationInactive,
		models.ErrDestinationOccupied,
		models.ErrOriginMismatch,
		models.ErrReleaseUnrelated,
		models.ErrTruckAlreadyQueued,
		models.ErrEntryNotWaiting,
		models.ErrPermitNotPending,
		models.ErrPassNotActive,
		store.ErrConflict,
	} {
		if errors.Is(err, conflict) {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
