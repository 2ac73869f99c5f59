package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/workspace-reservation/internal/lock"
	"github.com/iliyamo/workspace-reservation/internal/repository"
)

// Domain outcomes.  Callers classify with errors.Is; messages carry detail.
var (
	ErrInvalidRange     = errors.New("invalid time range")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrBusy             = errors.New("resource busy, retry later")
	ErrExpired          = errors.New("offer expired")
	ErrDuplicateEntry   = errors.New("duplicate waitlist entry")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrValidation       = errors.New("validation failed")

	// ErrStorage marks infrastructure failures (database, redis) as opposed
	// to domain outcomes.
	ErrStorage = errors.New("storage unavailable")
)

// fail translates a repository error for op.
func fail(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func lockFail(err error) error {
	if errors.Is(err, lock.ErrBusy) {
		return ErrBusy
	}
	return fmt.Errorf("acquire lock: %w: %w", ErrStorage, err)
}

func conflict(msg string) error     { return fmt.Errorf("%w: %s", ErrConflict, msg) }
func invalidRange(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidRange, msg) }
func invalid(msg string) error      { return fmt.Errorf("%w: %s", ErrValidation, msg) }

// isDomain reports whether err is one of the typed outcomes above rather
// than an infrastructure failure.
func isDomain(err error) bool {
	for _, e := range []error{ErrInvalidRange, ErrConflict, ErrForbidden, ErrNotFound, ErrBusy,
		ErrExpired, ErrDuplicateEntry, ErrAlreadyCancelled, ErrValidation} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
