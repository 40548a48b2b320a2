package service

import "errors"

// Sentinel errors the handlers translate into HTTP status codes.
var (
	ErrValidation         = errors.New("validation")          // 400
	ErrNotFound           = errors.New("not found")           // 404
	ErrConflict           = errors.New("conflict")            // 409
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrForbidden          = errors.New("forbidden")           // 403
	ErrEmptyCart          = errors.New("empty cart")          // 400
	ErrPaymentProvider    = errors.New("payment provider")    // 502
)
