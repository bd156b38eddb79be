// File: internal/nic/select.go
// Author: momentics <momentics@gmail.com>
//
// Adapted from the teacher's feature_detect.go: reports what this build can
// do and picks a driver accordingly instead of guessing between io_uring
// and epoll.

package nic

import "runtime"

// DetectFeatures returns the feature set this build advertises before a
// driver is constructed.
func DetectFeatures() Features {
	return Features{
		ZeroCopy:  dpdkBuildTagEnabled,
		Batch:     dpdkBuildTagEnabled,
		NUMAAware: dpdkBuildTagEnabled,
		OS:        []string{runtime.GOOS},
	}
}

// NewDriver returns the DPDK driver when the 'dpdk' build tag is enabled
// and falls back to the in-memory loopback driver otherwise.
func NewDriver(portID, queueID uint16) Driver {
	if d, err := newDPDKDriver(portID, queueID); err == nil {
		return d
	}
	return NewMemDriver()
}
