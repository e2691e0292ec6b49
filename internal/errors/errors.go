package errors

import "errors"

// Startup errors indicate the environment cannot support a session at all.
var (
	// ErrPrivilege indicates the process lacks the elevated privileges
	// required for mount and device-mapper operations. Fatal, never retried.
	ErrPrivilege = errors.New("root privileges are required")

	// ErrMount indicates a mount or unmount operation failed.
	ErrMount = errors.New("mount operation failed")
)

// Transfer errors indicate the encrypted image could not be obtained.
var (
	// ErrNetwork indicates the image download failed in transport.
	ErrNetwork = errors.New("image download failed")

	// ErrWrite indicates the image could not be written locally.
	ErrWrite = errors.New("local write failed")

	// ErrPartialImage indicates a download left an incomplete image behind.
	// Callers must treat a partial image as absent.
	ErrPartialImage = errors.New("image download incomplete")
)

// Unlock errors indicate the encrypted volume could not be opened.
var (
	// ErrAuthExhausted indicates every permitted passphrase attempt failed.
	ErrAuthExhausted = errors.New("passphrase attempts exhausted")

	// ErrWrongPassphrase indicates a single unlock attempt was rejected.
	// The controller retries these up to the attempt bound.
	ErrWrongPassphrase = errors.New("passphrase rejected")
)

// Destruct errors indicate the self-destruct unit could not be armed.
var (
	// ErrActivation indicates the destruct unit could not be detached from
	// the parent process. The unit must never run attached, so this is fatal.
	ErrActivation = errors.New("destruct unit could not be detached")

	// ErrTimerTooShort indicates the selected lifetime is below the minimum
	// session guarantee.
	ErrTimerTooShort = errors.New("selected lifetime is below the minimum session window")
)

// Session errors are local to the file shell and recoverable.
var (
	// ErrNotFound indicates a listed file is absent from this volume instance.
	ErrNotFound = errors.New("file not found in volume")
)
