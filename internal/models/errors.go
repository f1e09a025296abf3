package models

import "errors"

// Domain errors shared across engine components. NotFound lives in the store
// package; everything here is a conflict of some kind and maps to a 409 at the
// HTTP surface.

// Yard errors
var (
	ErrLocationOccupied    = errors.New("yard location is already occupied")
	ErrLocationInactive    = errors.New("yard location is inactive")
	ErrDestinationOccupied = errors.New("destination location is already occupied")
	ErrOriginMismatch      = errors.New("origin does not match the cargo item's current location")
	ErrReleaseUnrelated    = errors.New("location is not occupied by the given cargo item")
)

// Pass and permit errors
var (
	ErrPassNotActive     = errors.New("pass is not active")
	ErrPermitNotPending  = errors.New("permit is not pending")
	ErrInvalidPassData   = errors.New("invalid pass data")
	ErrInvalidPermitData = errors.New("invalid permit data")
)

// Queue errors
var (
	ErrTruckAlreadyQueued = errors.New("truck already has a waiting queue entry")
	ErrEntryNotWaiting    = errors.New("queue entry is not waiting")
	ErrInvalidQueueData   = errors.New("invalid queue entry data")
)
