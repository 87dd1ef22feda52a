package util

import "errors"

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidConfiguration = errors.New("invalid configuration")

	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")

	ErrNotFound          = errors.New("not found")
	ErrMaterialNotFound  = errors.New("material not found")
	ErrMaterialNotReady  = errors.New("material not ready")
	ErrNoExtractableText = errors.New("no extractable text found in document")

	ErrQuotaExhausted = errors.New("provider quota exhausted")
	ErrRateLimited    = errors.New("provider rate limited")
	ErrTransient      = errors.New("transient provider error")
	ErrPermanent      = errors.New("permanent provider error")
	ErrContextTooLong = errors.New("context too long")
)
