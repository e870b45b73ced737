package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

var ErrInvalidPassSerial = errors.New("pass serial is required")

// Denial reasons recorded in the attempt log. Granted attempts carry no
// reason.
const (
	ReasonUnknownPass = "unknown_pass"
	ReasonNoAccess    = "no_access"
)

// AccessDecision is the outcome of one real-time door-side check.
type AccessDecision struct {
	Granted  bool
	Username string
	Reason   string
}

// AccessService answers the unattended door-side question: may the door
// open for this pass right now.
type AccessService struct {
	directory store.DirectoryStore
	attempts  store.AttemptStore
	logger    *log.Logger
}

func NewAccessService(directory store.DirectoryStore, attempts store.AttemptStore, logger *log.Logger) *AccessService {
	return &AccessService{directory: directory, attempts: attempts, logger: logger}
}

// Decide resolves the pass to its owner and checks the access flag. Every
// decision, granted or denied, is appended to the attempt log: the log is
// the only audit trail and the input to pass enrollment. A failed log write
// is reported but never suppresses the decision already made.
func (s *AccessService) Decide(ctx context.Context, serial string) (AccessDecision, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return AccessDecision{}, ErrInvalidPassSerial
	}

	user, err := s.directory.FindUserByPass(ctx, serial)
	if errors.Is(err, store.ErrUserNotFound) {
		d := AccessDecision{Granted: false, Reason: ReasonUnknownPass}
		s.record(ctx, serial, d)
		return d, nil
	}
	if err != nil {
		return AccessDecision{}, err
	}

	d := AccessDecision{Granted: user.Access, Username: user.UID}
	if !user.Access {
		d.Reason = ReasonNoAccess
	}
	s.record(ctx, serial, d)
	return d, nil
}

func (s *AccessService) record(ctx context.Context, serial string, d AccessDecision) {
	err := s.attempts.RecordAttempt(ctx, store.ScanAttempt{
		CardID:    serial,
		Granted:   d.Granted,
		Username:  d.Username,
		Reason:    d.Reason,
		ScannedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Printf("attempt log write failed (decision stands): %v", err)
	}
}
