package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avanserv/deurapi/internal/deur/service"
	"github.com/avanserv/deurapi/internal/deur/store"
)

// fakeScanSource returns canned denied scans, or a transport error.
type fakeScanSource struct {
	rows []store.ScanAttempt
	err  error
}

func (f *fakeScanSource) RecentDenied(_ context.Context, n int) ([]store.ScanAttempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) > n {
		return f.rows[:n], nil
	}
	return f.rows, nil
}

var testNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func newTestValidator(src *fakeScanSource) *service.ScanValidator {
	return service.NewScanValidatorWithClock(src, func() time.Time { return testNow })
}

func deniedScan(serial string, at time.Time) store.ScanAttempt {
	return store.ScanAttempt{CardID: serial, Granted: false, ScannedAt: at}
}

func TestValidate_MatchingRecentScans_ReturnsSerial(t *testing.T) {
	src := &fakeScanSource{rows: []store.ScanAttempt{
		deniedScan("04:AA:BB:CC", testNow.Add(-5*time.Second)),
		deniedScan("04:AA:BB:CC", testNow.Add(-10*time.Second)),
	}}

	serial, err := newTestValidator(src).Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if serial != "04:AA:BB:CC" {
		t.Errorf("expected serial 04:AA:BB:CC, got %q", serial)
	}
}

func TestValidate_DifferentSerials_PassMismatch(t *testing.T) {
	src := &fakeScanSource{rows: []store.ScanAttempt{
		deniedScan("04:AA:BB:CC", testNow.Add(-5*time.Second)),
		deniedScan("04:DD:EE:FF", testNow.Add(-10*time.Second)),
	}}

	_, err := newTestValidator(src).Validate(context.Background())
	if !errors.Is(err, service.ErrPassMismatch) {
		t.Fatalf("expected ErrPassMismatch, got %v", err)
	}
}

// The mismatch check precedes the staleness check: two different stale
// passes report a mismatch, not an expired window.
func TestValidate_MismatchCheckedBeforeStaleness(t *testing.T) {
	src := &fakeScanSource{rows: []store.ScanAttempt{
		deniedScan("04:AA:BB:CC", testNow.Add(-1*time.Hour)),
		deniedScan("04:DD:EE:FF", testNow.Add(-2*time.Hour)),
	}}

	_, err := newTestValidator(src).Validate(context.Background())
	if !errors.Is(err, service.ErrPassMismatch) {
		t.Fatalf("expected ErrPassMismatch before staleness, got %v", err)
	}
}

// The ten-minute boundary is inclusive: a second row exactly at now-10m
// validates; one second beyond fails.
func TestValidate_WindowBoundary(t *testing.T) {
	cases := []struct {
		name    string
		age     time.Duration
		wantErr error
	}{
		{"just inside", 9*time.Minute + 59*time.Second, nil},
		{"exactly ten minutes", 10 * time.Minute, nil},
		{"one second too old", 10*time.Minute + time.Second, service.ErrEntriesTooOld},
		{"hours too old", 3 * time.Hour, service.ErrEntriesTooOld},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeScanSource{rows: []store.ScanAttempt{
				deniedScan("04:AA:BB:CC", testNow.Add(-tc.age+2*time.Second)),
				deniedScan("04:AA:BB:CC", testNow.Add(-tc.age)),
			}}

			_, err := newTestValidator(src).Validate(context.Background())
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidate_SingleScan_InsufficientData(t *testing.T) {
	src := &fakeScanSource{rows: []store.ScanAttempt{
		deniedScan("04:AA:BB:CC", testNow.Add(-5*time.Second)),
	}}

	_, err := newTestValidator(src).Validate(context.Background())
	if !errors.Is(err, service.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestValidate_EmptyLog_InsufficientData(t *testing.T) {
	src := &fakeScanSource{}

	_, err := newTestValidator(src).Validate(context.Background())
	if !errors.Is(err, service.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestValidate_SourceFailure_DoorResponseNotOkay(t *testing.T) {
	src := &fakeScanSource{err: errors.New("connection refused")}

	_, err := newTestValidator(src).Validate(context.Background())
	if !errors.Is(err, service.ErrDoorResponseNotOkay) {
		t.Fatalf("expected ErrDoorResponseNotOkay, got %v", err)
	}
}
