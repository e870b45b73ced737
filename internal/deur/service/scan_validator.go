package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// Scan-validation failure kinds. Wrapped errors keep the underlying cause
// for server logs; errors.Is against these decides the response.
var (
	ErrDoorResponseNotOkay = errors.New("door_response_not_okay")
	ErrPassMismatch        = errors.New("pass_mismatch")
	ErrEntriesTooOld       = errors.New("entries_too_old")
	ErrInsufficientData    = errors.New("insufficient_data")
)

// DeniedScanSource yields the most recent denied scans, newest first. Both
// the local attempt store and the door controller client satisfy it.
type DeniedScanSource interface {
	RecentDenied(ctx context.Context, n int) ([]store.ScanAttempt, error)
}

// proofWindow bounds how stale an in-person verification can be: the member
// scans twice at the door, then the administrator has this long to complete
// the enrollment.
const proofWindow = 10 * time.Minute

// ScanValidator decides whether the two most recent denied scans represent
// one trustworthy physical presentation of a single pass.
type ScanValidator struct {
	source DeniedScanSource
	now    func() time.Time
}

func NewScanValidator(source DeniedScanSource) *ScanValidator {
	return &ScanValidator{source: source, now: time.Now}
}

// NewScanValidatorWithClock is like NewScanValidator with an injected clock
// for deterministic window tests.
func NewScanValidatorWithClock(source DeniedScanSource, now func() time.Time) *ScanValidator {
	return &ScanValidator{source: source, now: now}
}

// Validate returns the proven pass serial, or one of the failure kinds
// above. The serial is taken from the rows inspected here and handed
// straight to the caller, so a later scan can never change the outcome of
// this validation.
//
// The window is always exactly two rows, and the checks run in a fixed
// order: transport, row count, serial match, staleness. The staleness
// boundary is inclusive: a second row exactly ten minutes old still
// validates.
func (v *ScanValidator) Validate(ctx context.Context) (string, error) {
	rows, err := v.source.RecentDenied(ctx, 2)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDoorResponseNotOkay, err)
	}
	if len(rows) < 2 {
		return "", fmt.Errorf("%w: have %d denied scans, need 2", ErrInsufficientData, len(rows))
	}

	first, second := rows[0], rows[1]

	if first.CardID != second.CardID {
		return "", ErrPassMismatch
	}

	deadline := v.now().Add(-proofWindow)
	if second.ScannedAt.Before(deadline) {
		return "", ErrEntriesTooOld
	}

	return first.CardID, nil
}
