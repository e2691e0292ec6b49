// Package logger provides leveled logging for deaddrop CLI commands.
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: shows info and warning messages
//   - --debug: shows all messages including debug details
//
// Without flags, only critical warnings and errors are shown.
//
// Commands create a logger in their PersistentPreRun and pass it to
// internal functions. The detached destruct triggers create their own
// always-verbose logger since their output goes to a log file.
package logger
