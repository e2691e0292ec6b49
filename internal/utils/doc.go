// Package utils provides terminal and system helpers shared across commands.
package utils
