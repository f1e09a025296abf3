package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/events"
	"github.com/harborops/terminal-core/internal/gate"
	"github.com/harborops/terminal-core/internal/httpserver"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/passes"
	"github.com/harborops/terminal-core/internal/queue"
	"github.com/harborops/terminal-core/internal/store"
	"github.com/harborops/terminal-core/internal/yard"
)

func newTestServer(st *store.MemoryStore) *httpserver.Server {
	log := zerolog.Nop()
	allocator := yard.NewAllocator(st)
	return &httpserver.Server{
		Store:     st,
		Allocator: allocator,
		Movements: yard.NewMovementTracker(st, allocator, audit.NopRecorder{}, events.Noop{}, log),
		Validator: gate.NewValidator(st, events.Noop{}, log),
		Permits:   gate.NewPermitService(st, audit.NopRecorder{}),
		Passes:    passes.NewIssuer(st, audit.NopRecorder{}),
		Queue:     queue.New(st, audit.NopRecorder{}, events.Noop{}, log),
		Log:       log,
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllocateEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	loc, err := st.CreateYardLocation(context.Background(), models.YardLocation{
		Zone: "NORTE", Block: "A", Row: 1, Tier: 1, LocationType: "CONTAINER", CapacityTEU: 1, Active: true,
	})
	require.NoError(t, err)

	body := map[string]interface{}{"locationId": loc.ID, "cargoId": uuid.New()}
	rec := doJSON(t, router, http.MethodPost, "/yard/allocate", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second allocation of the same slot conflicts.
	body["cargoId"] = uuid.New()
	rec = doJSON(t, router, http.MethodPost, "/yard/allocate", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown location is a 404.
	rec = doJSON(t, router, http.MethodPost, "/yard/allocate", map[string]interface{}{
		"locationId": uuid.New(), "cargoId": uuid.New(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	loc, err := st.CreateYardLocation(context.Background(), models.YardLocation{
		Zone: "NORTE", Block: "A", Row: 1, Tier: 1, Active: true,
	})
	require.NoError(t, err)
	cargoID := uuid.New()
	require.NoError(t, srv.Allocator.Allocate(context.Background(), loc.ID, cargoID))

	rec := doJSON(t, router, http.MethodPost, "/yard/release", map[string]interface{}{
		"locationId": loc.ID, "cargoId": cargoID,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := st.GetYardLocation(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.False(t, got.Occupied)
}

func TestListLocationsEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)

	for i := 1; i <= 3; i++ {
		_, err := st.CreateYardLocation(context.Background(), models.YardLocation{
			Zone: "NORTE", Block: "A", Row: i, Tier: 1, Active: true,
		})
		require.NoError(t, err)
	}
	_, err := st.CreateYardLocation(context.Background(), models.YardLocation{
		Zone: "SUR", Block: "B", Row: 1, Tier: 1, Active: true,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/yard/locations?zone=NORTE", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Locations []models.YardLocation `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Locations, 3)
}

func TestMoveEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	origin, err := st.CreateYardLocation(context.Background(), models.YardLocation{
		Zone: "NORTE", Block: "A", Row: 1, Tier: 1, Active: true,
	})
	require.NoError(t, err)
	dest, err := st.CreateYardLocation(context.Background(), models.YardLocation{
		Zone: "SUR", Block: "B", Row: 1, Tier: 1, Active: true,
	})
	require.NoError(t, err)

	cargo, err := st.CreateCargoItem(context.Background(), models.CargoItem{
		ManifestRef: "MFT-1", BillOfLading: "BL-1", Status: models.CargoStored, LocationID: &origin.ID,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Allocator.Allocate(context.Background(), origin.ID, cargo.ID))

	rec := doJSON(t, router, http.MethodPost, "/cargo/move", map[string]interface{}{
		"cargoId":       cargo.ID,
		"destinationId": dest.ID,
		"movementType":  "TRANSFER",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status models.CargoStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.CargoStored, resp.Status)

	// Bad movement type is rejected before the engine runs.
	rec = doJSON(t, router, http.MethodPost, "/cargo/move", map[string]interface{}{
		"cargoId":       cargo.ID,
		"destinationId": dest.ID,
		"movementType":  "TELEPORT",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateValidateEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	now := time.Now().UTC()
	pass, err := st.CreateDigitalPass(context.Background(), models.DigitalPass{
		PassCode: "TP-TEST", PassType: models.PassPersonal,
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
		Status: models.PassActive,
	})
	require.NoError(t, err)

	// Rule violations are a 200 with the decision body, not an HTTP error.
	rec := doJSON(t, router, http.MethodPost, "/gate/validate", map[string]interface{}{
		"passId": pass.ID, "action": "ENTRY",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var decision gate.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.False(t, decision.Valid)
	require.Len(t, decision.Errors, 1)

	// An unknown pass is a 404.
	rec = doJSON(t, router, http.MethodPost, "/gate/validate", map[string]interface{}{
		"passId": uuid.New(), "action": "ENTRY",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermitLifecycleEndpoints(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	now := time.Now().UTC()
	pass, err := st.CreateDigitalPass(context.Background(), models.DigitalPass{
		PassCode: "TV-TEST", PassType: models.PassVehicular,
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
		Status: models.PassActive,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/permits", map[string]interface{}{
		"passId": pass.ID, "permitType": "ENTRY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var permit models.AccessPermit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &permit))
	assert.Equal(t, models.PermitPending, permit.Status)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/gate/permits/%s/consume", permit.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A second consume conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/gate/permits/%s/consume", permit.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPassEndpoints(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/passes", map[string]interface{}{
		"passType":       "PERSONAL",
		"holderName":     "Juan Perez",
		"holderDocument": "12345678",
		"validFrom":      time.Now().UTC(),
		"validUntil":     time.Now().UTC().Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var pass models.DigitalPass
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pass))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/passes/%s/revoke", pass.ID), map[string]interface{}{
		"reason": "credential lost",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Missing plate on a vehicular pass is a 400.
	rec = doJSON(t, router, http.MethodPost, "/passes", map[string]interface{}{
		"passType":       "VEHICULAR",
		"holderName":     "Juan Perez",
		"holderDocument": "12345678",
		"validFrom":      time.Now().UTC(),
		"validUntil":     time.Now().UTC().Add(24 * time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueueEndpoints(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(st)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/queue/entries", map[string]interface{}{
		"truckId": "ABC-123", "zone": "PREGATE",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.QueueEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))

	// Duplicate waiting truck conflicts, even in the other zone.
	rec = doJSON(t, router, http.MethodPost, "/queue/entries", map[string]interface{}{
		"truckId": "ABC-123", "zone": "ZOE",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/queue/entries/%s/authorize", entry.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/queue/entries/%s/reject", entry.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/queue/stats?zone=PREGATE", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats queue.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Count)

	rec = doJSON(t, router, http.MethodGet, "/queue/stats?zone=PARKING", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	srv := newTestServer(store.NewMemoryStore())
	srv.JWTSecret = "test-secret"
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/yard/locations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays open.
	rec = doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "operator-7",
		"roles": []string{"gate"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/yard/locations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
