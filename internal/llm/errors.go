package llm

import "errors"

// Categorías cerradas de error del proveedor. El cliente traduce una sola vez
// en el borde; los handlers eligen el código HTTP con errors.Is.
var (
	ErrInvalidAPIKey  = errors.New("invalid api key")
	ErrRateLimited    = errors.New("provider rate limited")
	ErrUnavailable    = errors.New("provider unavailable")
	ErrContentBlocked = errors.New("content blocked by safety filter")
)
