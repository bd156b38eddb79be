//go:build !linux
// +build !linux

// File: internal/iface/hwaddr_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux stub: MAC resolution via SIOCGIFHWADDR is Linux-specific, so
// other platforms get a deterministic zero address instead of failing the
// whole discovery pass, keeping the daemon buildable for development
// elsewhere.

package iface

func hardwareAddr(name string) ([6]byte, error) {
	return [6]byte{}, nil
}
