// Package ui provides semantic text formatting for terminal output.
//
// Formatters degrade gracefully when color is unavailable: each carries a
// plain-text decoration used when NO_COLOR is set or stdout is not a
// capable terminal.
package ui
