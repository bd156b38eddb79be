//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for non-Linux platforms. The fabric's kernel-bypass
// NIC submit path assumes Linux; this keeps the daemon buildable elsewhere
// for development and testing with affinity pinning simply disabled.

package affinity

import "errors"

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}
