// package gate implements multi-rule admission validation for gate events and
// the one-shot consumption of access permits.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborops/terminal-core/internal/events"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

// appointmentWindow is how far ahead a vehicular entry is expected to have an
// appointment before a warning is raised.
const appointmentWindow = 2 * time.Hour

// Decision is the accumulated result of all admission rules for one gate
// event. Valid is true iff Errors is empty; Warnings never block admission.
type Decision struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (d *Decision) fail(format string, args ...interface{}) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Decision) warn(format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// ValidateInput identifies the pass, the gate action, and optionally the
// cargo item involved in an exit.
type ValidateInput struct {
	PassID  uuid.UUID
	Action  models.GateAction
	CargoID *uuid.UUID
}

// Validator checks digital-pass validity plus access permits before a vehicle
// or person passes a gate. It performs no writes: permit consumption is a
// separate explicit step once the physical gate event is confirmed.
//
// All rules are evaluated; violations accumulate so the caller sees every
// problem at once instead of fixing them one round-trip at a time.
type Validator struct {
	store     store.Store
	publisher events.Publisher
	log       zerolog.Logger

	// Now is the clock used for temporal rules; overridable in tests.
	Now func() time.Time
}

func NewValidator(st store.Store, publisher events.Publisher, log zerolog.Logger) *Validator {
	return &Validator{
		store:     st,
		publisher: publisher,
		log:       log.With().Str("component", "gate.validator").Logger(),
		Now:       time.Now,
	}
}

// Validate runs the admission rule chain. An unknown pass or cargo id is a
// call-level error (store.ErrNotFound); rule violations come back inside the
// Decision with the call succeeding.
func (v *Validator) Validate(ctx context.Context, in ValidateInput) (Decision, error) {
	pass, err := v.store.GetDigitalPass(ctx, in.PassID)
	if err != nil {
		return Decision{}, err
	}

	now := v.Now().UTC()
	d := Decision{Errors: []string{}, Warnings: []string{}}

	if pass.Status != models.PassActive {
		d.fail("pass %s is not active (status %s)", pass.PassCode, pass.Status)
	}
	if now.Before(pass.ValidFrom) {
		d.fail("pass %s is not yet valid (valid from %s)", pass.PassCode, pass.ValidFrom.Format(time.RFC3339))
	} else if now.After(pass.ValidUntil) {
		d.fail("pass %s expired on %s", pass.PassCode, pass.ValidUntil.Format(time.RFC3339))
	}

	switch in.Action {
	case models.ActionExit:
		if err := v.checkExit(ctx, pass, in.CargoID, &d); err != nil {
			return Decision{}, err
		}
	case models.ActionEntry:
		if err := v.checkEntry(ctx, pass, now, &d); err != nil {
			return Decision{}, err
		}
	default:
		return Decision{}, fmt.Errorf("unknown gate action %q", in.Action)
	}

	d.Valid = len(d.Errors) == 0

	if err := v.publisher.Publish(ctx, events.TopicGateValidated, events.GateValidated{
		PassID:   pass.ID,
		Action:   in.Action,
		Valid:    d.Valid,
		Errors:   d.Errors,
		Warnings: d.Warnings,
	}); err != nil {
		v.log.Warn().Err(err).Msg("publish gate.validated failed")
	}

	return d, nil
}

func (v *Validator) checkExit(ctx context.Context, pass models.DigitalPass, cargoID *uuid.UUID, d *Decision) error {
	permit, err := v.store.FindPendingPermit(ctx, pass.ID, models.PermitExit)
	havePermit := err == nil
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		d.fail("no pending exit permit for pass %s", pass.PassCode)
	}

	if cargoID == nil {
		return nil
	}

	cargo, err := v.store.GetCargoItem(ctx, *cargoID)
	if err != nil {
		return err
	}
	if cargo.BillOfLading == "" {
		d.fail("cargo %s is missing a bill of lading reference", cargo.ManifestRef)
	}
	if cargo.Status != models.CargoInTransit && cargo.Status != models.CargoStored {
		d.fail("cargo %s is not available for exit (status %s)", cargo.ManifestRef, cargo.Status)
	}
	// A permit tied to a different cargo item is tolerated but flagged; the
	// paperwork and the physical load disagree and someone should look.
	if havePermit && permit.CargoID != nil && *permit.CargoID != cargo.ID {
		d.warn("exit permit %s is linked to a different cargo item", permit.ID)
	}
	return nil
}

func (v *Validator) checkEntry(ctx context.Context, pass models.DigitalPass, now time.Time, d *Decision) error {
	if _, err := v.store.FindPendingPermit(ctx, pass.ID, models.PermitEntry); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		d.fail("no pending entry permit for pass %s", pass.PassCode)
	}

	if pass.PassType == models.PassVehicular {
		if _, err := v.store.FindUpcomingAppointment(ctx, pass.ID, now, now.Add(appointmentWindow)); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			d.warn("no appointment scheduled within the next %s for pass %s", appointmentWindow, pass.PassCode)
		}
	}
	return nil
}
