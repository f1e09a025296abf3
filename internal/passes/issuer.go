// package passes issues and revokes digital passes. QR rendering of the pass
// code is handled by the front office, not here.
package passes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

// Pass codes are short, unambiguous and printable: no 0/O, 1/I pairs.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 10
)

// Issuer creates digital passes with unique pass codes and handles
// revocation.
type Issuer struct {
	store    store.Store
	recorder audit.Recorder

	Now func() time.Time
}

func NewIssuer(st store.Store, recorder audit.Recorder) *Issuer {
	return &Issuer{
		store:    st,
		recorder: recorder,
		Now:      time.Now,
	}
}

// IssueInput describes a new pass.
type IssueInput struct {
	Type           models.PassType
	HolderName     string
	HolderDocument string
	PlateNumber    string
	ValidFrom      time.Time
	ValidUntil     time.Time
	Actor          string
}

func (in IssueInput) validate() error {
	if in.Type != models.PassPersonal && in.Type != models.PassVehicular {
		return models.ErrInvalidPassData
	}
	if in.HolderName == "" || in.HolderDocument == "" {
		return models.ErrInvalidPassData
	}
	if in.Type == models.PassVehicular && in.PlateNumber == "" {
		return models.ErrInvalidPassData
	}
	if !in.ValidUntil.After(in.ValidFrom) {
		return models.ErrInvalidPassData
	}
	return nil
}

// Issue creates an ACTIVE pass with a generated code ("TP-..." personal,
// "TV-..." vehicular).
func (i *Issuer) Issue(ctx context.Context, in IssueInput) (models.DigitalPass, error) {
	if err := in.validate(); err != nil {
		return models.DigitalPass{}, err
	}

	code, err := i.generateCode(in.Type)
	if err != nil {
		return models.DigitalPass{}, err
	}

	pass, err := i.store.CreateDigitalPass(ctx, models.DigitalPass{
		ID:             uuid.New(),
		PassCode:       code,
		PassType:       in.Type,
		HolderName:     in.HolderName,
		HolderDocument: in.HolderDocument,
		PlateNumber:    in.PlateNumber,
		ValidFrom:      in.ValidFrom.UTC(),
		ValidUntil:     in.ValidUntil.UTC(),
		Status:         models.PassActive,
	})
	if err != nil {
		return models.DigitalPass{}, fmt.Errorf("create pass: %w", err)
	}

	i.recorder.Record(ctx, audit.Event{
		Action:     "pass.issue",
		EntityType: "digital_pass",
		EntityID:   pass.ID.String(),
		Actor:      in.Actor,
		After:      pass,
	})
	return pass, nil
}

func (i *Issuer) generateCode(passType models.PassType) (string, error) {
	suffix, err := gonanoid.Generate(codeAlphabet, codeLength)
	if err != nil {
		return "", fmt.Errorf("generate pass code: %w", err)
	}
	prefix := "TP"
	if passType == models.PassVehicular {
		prefix = "TV"
	}
	return prefix + "-" + suffix, nil
}

// Revoke flips an ACTIVE pass to REVOKED. Revocation is terminal.
func (i *Issuer) Revoke(ctx context.Context, passID uuid.UUID, reason, actor string) (models.DigitalPass, error) {
	pass, err := i.store.GetDigitalPass(ctx, passID)
	if err != nil {
		return models.DigitalPass{}, err
	}
	if pass.Status != models.PassActive {
		return models.DigitalPass{}, models.ErrPassNotActive
	}

	before := pass
	pass.Status = models.PassRevoked
	if err := i.store.SaveDigitalPass(ctx, pass); err != nil {
		return models.DigitalPass{}, fmt.Errorf("save pass: %w", err)
	}

	i.recorder.Record(ctx, audit.Event{
		Action:     "pass.revoke",
		EntityType: "digital_pass",
		EntityID:   pass.ID.String(),
		Actor:      actor,
		Before:     before,
		After:      pass,
		Metadata:   map[string]interface{}{"reason": reason},
	})
	return pass, nil
}
