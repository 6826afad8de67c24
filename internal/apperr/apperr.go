// Package apperr holds the error kinds shared by the ledger, payout and broadcast layers.
// Domain errors wrap one of these so handlers can branch with errors.Is.
package apperr

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDelivery   = errors.New("delivery failed")
	ErrStore      = errors.New("store failure")
)
