// Package audit appends JSON Lines records of session and destruct-unit
// operations.
//
// The log lives outside the ramdisk so the detached triggers can record
// their firing after the volatile store is gone. Logging is best-effort:
// a failure to write never fails the operation being recorded, and no
// entry ever contains a passphrase or decrypted content.
package audit
