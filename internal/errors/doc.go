// Package errors defines sentinel errors shared across deaddrop packages.
//
// Callers wrap these with fmt.Errorf("context: %w", err) and match them
// with errors.Is. Every error except ErrNotFound and ErrWrongPassphrase is
// fatal to the session.
package errors
