// Package apperr holds sentinel errors shared across refgraph packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidCorpus = errors.New("invalid corpus")
	ErrNoReport      = errors.New("no audit report yet")
	ErrNoHistory     = errors.New("run history disabled")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAuditFailed   = errors.New("audit failed")
)
