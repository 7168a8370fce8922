package domain

import "errors"

// Errores de dominio; los handlers los traducen a códigos HTTP con errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failed")
)
