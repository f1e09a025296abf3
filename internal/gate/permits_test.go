package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/gate"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

func TestIssueAndConsumePermit(t *testing.T) {
	st := store.NewMemoryStore()
	svc := gate.NewPermitService(st, audit.NopRecorder{})
	svc.Now = func() time.Time { return testNow }

	pass := seedPass(t, st, models.PassVehicular, models.PassActive, testNow.Add(-time.Hour), testNow.Add(time.Hour))

	permit, err := svc.Issue(context.Background(), gate.IssueInput{
		PassID: pass.ID,
		Type:   models.PermitExit,
		Actor:  "dispatcher-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.PermitPending, permit.Status)

	used, err := svc.Consume(context.Background(), permit.ID, "gate-1")
	require.NoError(t, err)
	require.Equal(t, models.PermitUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	require.Equal(t, testNow, *used.UsedAt)

	// USED is terminal.
	_, err = svc.Consume(context.Background(), permit.ID, "gate-1")
	require.ErrorIs(t, err, models.ErrPermitNotPending)
}

func TestIssuePermitValidation(t *testing.T) {
	st := store.NewMemoryStore()
	svc := gate.NewPermitService(st, audit.NopRecorder{})

	_, err := svc.Issue(context.Background(), gate.IssueInput{PassID: uuid.New(), Type: "SIDEWAYS"})
	require.ErrorIs(t, err, models.ErrInvalidPermitData)

	_, err = svc.Issue(context.Background(), gate.IssueInput{PassID: uuid.New(), Type: models.PermitEntry})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeUnknownPermit(t *testing.T) {
	svc := gate.NewPermitService(store.NewMemoryStore(), audit.NopRecorder{})
	_, err := svc.Consume(context.Background(), uuid.New(), "gate-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
