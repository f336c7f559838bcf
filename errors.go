package boxline

import "errors"

var (
	// Store errors.
	ErrNoStore            = errors.New("boxline: no store configured")
	ErrStoreClosed        = errors.New("boxline: store closed")
	ErrPersistenceFailure = errors.New("boxline: persistence failure")

	// Not found errors.
	ErrJobNotFound        = errors.New("boxline: job not found")
	ErrPlanNotFound       = errors.New("boxline: step plan not found")
	ErrStepNotFound       = errors.New("boxline: step instance not found")
	ErrWorkRecordNotFound = errors.New("boxline: machine work record not found")
	ErrDetailNotFound     = errors.New("boxline: step detail record not found")
	ErrArchiveNotFound    = errors.New("boxline: archive not found")
	ErrEntryNotFound      = errors.New("boxline: reconciliation entry not found")

	// Conflict errors.
	ErrJobAlreadyExists    = errors.New("boxline: job already exists")
	ErrJobAlreadyArchived  = errors.New("boxline: job already archived")
	ErrConcurrentCompleted = errors.New("boxline: step already completed by a concurrent caller")

	// State errors.
	ErrInvalidTransition = errors.New("boxline: invalid state transition")
	ErrSequenceViolation = errors.New("boxline: step sequencing violation")
	ErrValidationFailed  = errors.New("boxline: validation failed")
	ErrUnauthorized      = errors.New("boxline: not authorized")
)
