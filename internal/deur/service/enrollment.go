package service

import (
	"context"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// EnrollmentService binds a freshly proven physical pass to a directory
// user. It is the only path that attaches passes; it never reads the scan
// log itself; proof of possession is entirely the validator's business.
type EnrollmentService struct {
	validator *ScanValidator
	directory store.DirectoryStore
}

func NewEnrollmentService(validator *ScanValidator, directory store.DirectoryStore) *EnrollmentService {
	return &EnrollmentService{validator: validator, directory: directory}
}

// Enroll validates the latest double scan and attaches the proven serial to
// uid. Any validation failure surfaces before the directory is touched, so
// a failed enrollment never leaves partial state. On success the fresh
// directory record is returned for client display.
func (s *EnrollmentService) Enroll(ctx context.Context, uid string) (store.UserRecord, error) {
	serial, err := s.validator.Validate(ctx)
	if err != nil {
		return store.UserRecord{}, err
	}

	if err := s.directory.AttachPass(ctx, uid, serial); err != nil {
		return store.UserRecord{}, err
	}

	return s.directory.FindUser(ctx, uid)
}
