// Package ramdisk provisions the memory-backed volatile store.
//
// The store is a tmpfs mount of fixed capacity. Everything written under
// it disappears on unmount or reboot, which is the point: the destruct
// plan and any transient session files live here.
package ramdisk
