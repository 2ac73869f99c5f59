// Package repository defines the storage contracts of the reservation engine
// and their database/sql implementation.  The sentinel values below let the
// service layer tell a missing row apart from an infrastructure failure
// without depending on a particular driver.
package repository

import "errors"

// ErrNotFound is returned when a row with the requested ID does not exist.
// Services translate it into their own not-found error.
var ErrNotFound = errors.New("repository: not found")
