// Package configs defines the immutable session configuration.
//
// Precedence, lowest to highest: built-in defaults, the TOML file passed
// with --config, individual command-line flags. The resulting Config is
// passed by value into each component and never mutated mid-session.
package configs
