package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrRunActive           = errors.New("a generation run is already active")
	ErrSafetyLock          = errors.New("ai generation is disabled by safety lock")
	ErrServiceBusy         = errors.New("ai service is busy, please try again shortly")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidRole         = errors.New("invalid role")
)
