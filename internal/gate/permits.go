package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

// PermitService issues and consumes access permits. Consumption is the
// explicit step after the physical gate event is confirmed; the validator
// never consumes anything.
type PermitService struct {
	store    store.Store
	recorder audit.Recorder

	Now func() time.Time
}

func NewPermitService(st store.Store, recorder audit.Recorder) *PermitService {
	return &PermitService{
		store:    st,
		recorder: recorder,
		Now:      time.Now,
	}
}

// IssueInput describes a new permit.
type IssueInput struct {
	PassID  uuid.UUID
	Type    models.PermitType
	CargoID *uuid.UUID
	Actor   string
}

// Issue creates a PENDING permit for the pass.
func (s *PermitService) Issue(ctx context.Context, in IssueInput) (models.AccessPermit, error) {
	if in.Type != models.PermitEntry && in.Type != models.PermitExit {
		return models.AccessPermit{}, models.ErrInvalidPermitData
	}
	if _, err := s.store.GetDigitalPass(ctx, in.PassID); err != nil {
		return models.AccessPermit{}, err
	}
	permit, err := s.store.CreateAccessPermit(ctx, models.AccessPermit{
		ID:         uuid.New(),
		PermitType: in.Type,
		PassID:     in.PassID,
		CargoID:    in.CargoID,
		Status:     models.PermitPending,
	})
	if err != nil {
		return models.AccessPermit{}, fmt.Errorf("create permit: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     "permit.issue",
		EntityType: "access_permit",
		EntityID:   permit.ID.String(),
		Actor:      in.Actor,
		After:      permit,
	})
	return permit, nil
}

// Consume transitions the permit PENDING -> USED. The transition is terminal
// and one-directional: a second consume returns ErrPermitNotPending and does
// not touch the permit again.
func (s *PermitService) Consume(ctx context.Context, permitID uuid.UUID, actor string) (models.AccessPermit, error) {
	permit, err := s.store.GetAccessPermit(ctx, permitID)
	if err != nil {
		return models.AccessPermit{}, err
	}
	if permit.Status != models.PermitPending {
		return models.AccessPermit{}, models.ErrPermitNotPending
	}

	before := permit
	now := s.Now().UTC()
	permit.Status = models.PermitUsed
	permit.UsedAt = &now
	if err := s.store.SaveAccessPermit(ctx, permit); err != nil {
		return models.AccessPermit{}, fmt.Errorf("save permit: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     "permit.consume",
		EntityType: "access_permit",
		EntityID:   permit.ID.String(),
		Actor:      actor,
		Before:     before,
		After:      permit,
	})
	return permit, nil
}
