// Package luks talks to the system volume-encryption service.
//
// The cryptographic format and its implementation are external: this
// package only drives cryptsetup(8) through a narrow Service interface and
// mounts the plaintext block device it exposes. Passphrases are delivered
// over stdin, never argv, and are zeroed after each attempt.
package luks
