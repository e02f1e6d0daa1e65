// Package repository provides the durable stores of the session engine:
// the keyed session store (with its working audit log), the append-only
// attempt ledger, the read-only question bank, and the audit sink.
package repository

import "errors"

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")
