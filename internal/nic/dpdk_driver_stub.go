//go:build !dpdk
// +build !dpdk

// File: internal/nic/dpdk_driver_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub used when the module is built without the 'dpdk' tag: NewDriver
// falls back to the in-memory loopback driver instead of failing outright,
// so the daemon and its tests run on hosts without a DPDK-capable card.

package nic

import "errors"

func newDPDKDriver(uint16, uint16) (Driver, error) {
	return nil, errors.New("nic: DPDK driver not available (build tag 'dpdk' not enabled)")
}
