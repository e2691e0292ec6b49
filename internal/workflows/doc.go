// Package workflows contains the session orchestration behind the CLI
// commands, decoupled from cobra and the terminal so the pipeline can be
// exercised against fake services.
package workflows
