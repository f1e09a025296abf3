// package models contains the canonical entities of the terminal resource engine.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CargoStatus tracks a cargo item through the terminal.
type CargoStatus string

const (
	CargoInTransit  CargoStatus = "IN_TRANSIT"
	CargoStored     CargoStatus = "STORED"
	CargoDispatched CargoStatus = "DISPATCHED"
)

// MovementType classifies a cargo movement.
type MovementType string

const (
	MovementTraction MovementType = "TRACTION" // in-yard shuffle
	MovementTransfer MovementType = "TRANSFER" // zone change
	MovementDispatch MovementType = "DISPATCH" // cargo leaves the yard
)

// SealCondition is the observed state of a cargo seal during verification.
type SealCondition string

const (
	SealIntact   SealCondition = "INTACT"
	SealBroken   SealCondition = "BROKEN"
	SealReplaced SealCondition = "REPLACED"
)

// PassType distinguishes personal from vehicular passes.
type PassType string

const (
	PassPersonal  PassType = "PERSONAL"
	PassVehicular PassType = "VEHICULAR"
)

// PassStatus is the administrative state of a digital pass. An ACTIVE status
// does not by itself imply temporal validity; see DigitalPass.ValidAt.
type PassStatus string

const (
	PassActive  PassStatus = "ACTIVE"
	PassExpired PassStatus = "EXPIRED"
	PassRevoked PassStatus = "REVOKED"
)

// PermitType is the direction an access permit authorizes.
type PermitType string

const (
	PermitEntry PermitType = "ENTRY"
	PermitExit  PermitType = "EXIT"
)

// PermitStatus is the lifecycle state of an access permit. PENDING -> USED is
// terminal; a permit is consumed at most once.
type PermitStatus string

const (
	PermitPending PermitStatus = "PENDING"
	PermitUsed    PermitStatus = "USED"
	PermitExpired PermitStatus = "EXPIRED"
)

// GateAction is the gate event being validated.
type GateAction string

const (
	ActionEntry GateAction = "ENTRY"
	ActionExit  GateAction = "EXIT"
)

// QueueZone identifies a pre-gate waiting area.
type QueueZone string

const (
	ZonePregate QueueZone = "PREGATE"
	ZoneZOE     QueueZone = "ZOE"
)

// QueueStatus is the state of a queue entry. WAITING -> AUTHORIZED|REJECTED
// are terminal transitions.
type QueueStatus string

const (
	QueueWaiting    QueueStatus = "WAITING"
	QueueAuthorized QueueStatus = "AUTHORIZED"
	QueueRejected   QueueStatus = "REJECTED"
)

// YardLocation is a discrete storage position in the terminal yard.
// Occupied is true iff exactly one non-dispatched cargo item references it.
type YardLocation struct {
	ID           uuid.UUID  `json:"id"`
	Zone         string     `json:"zone"`
	Block        string     `json:"block"`
	Row          int        `json:"row"`
	Tier         int        `json:"tier"`
	LocationType string     `json:"locationType"`
	CapacityTEU  int        `json:"capacityTeu"`
	Occupied     bool       `json:"occupied"`
	CargoID      *uuid.UUID `json:"cargoId,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Code returns the human-readable slot code, e.g. "NORTE-A-03-1".
func (l YardLocation) Code() string {
	return formatLocationCode(l.Zone, l.Block, l.Row, l.Tier)
}

// CargoItem is a unit of cargo tracked through IN_TRANSIT -> STORED -> DISPATCHED.
// LocationID is set while the item is in the yard; after dispatch it keeps the
// last destination for traceability and no longer counts as occupying it.
type CargoItem struct {
	ID           uuid.UUID   `json:"id"`
	ManifestRef  string      `json:"manifestRef"`
	BillOfLading string      `json:"billOfLading,omitempty"`
	SealNumber   string      `json:"sealNumber,omitempty"`
	Status       CargoStatus `json:"status"`
	LocationID   *uuid.UUID  `json:"locationId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// DigitalPass is a credential with a validity window, consulted but not
// consumed by admission checks.
type DigitalPass struct {
	ID             uuid.UUID  `json:"id"`
	PassCode       string     `json:"passCode"`
	PassType       PassType   `json:"passType"`
	HolderName     string     `json:"holderName"`
	HolderDocument string     `json:"holderDocument"`
	PlateNumber    string     `json:"plateNumber,omitempty"` // vehicular passes only
	ValidFrom      time.Time  `json:"validFrom"`
	ValidUntil     time.Time  `json:"validUntil"`
	Status         PassStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ValidAt reports whether the pass is usable at the given instant:
// status ACTIVE and within [ValidFrom, ValidUntil].
func (p DigitalPass) ValidAt(now time.Time) bool {
	if p.Status != PassActive {
		return false
	}
	return !now.Before(p.ValidFrom) && !now.After(p.ValidUntil)
}

// AccessPermit is a single-use authorization tied to a pass and optionally to
// a specific cargo item.
type AccessPermit struct {
	ID         uuid.UUID    `json:"id"`
	PermitType PermitType   `json:"permitType"`
	PassID     uuid.UUID    `json:"passId"`
	CargoID    *uuid.UUID   `json:"cargoId,omitempty"`
	Status     PermitStatus `json:"status"`
	UsedAt     *time.Time   `json:"usedAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// QueueEntry is a vehicle staged in a pre-gate waiting area. At most one
// WAITING entry exists per truck across all zones.
type QueueEntry struct {
	ID            uuid.UUID   `json:"id"`
	TruckID       string      `json:"truckId"`
	AppointmentID *uuid.UUID  `json:"appointmentId,omitempty"`
	Zone          QueueZone   `json:"zone"`
	EntryTime     time.Time   `json:"entryTime"`
	ExitTime      *time.Time  `json:"exitTime,omitempty"`
	Status        QueueStatus `json:"status"`
}

func formatLocationCode(zone, block string, row, tier int) string {
	return fmt.Sprintf("%s-%s-%02d-%d", zone, block, row, tier)
}

// Appointment is a scheduled gate visit for a pass/truck pair.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PassID      uuid.UUID `json:"passId"`
	TruckID     string    `json:"truckId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	CreatedAt   time.Time `json:"createdAt"`
}
