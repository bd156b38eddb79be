//go:build linux
// +build linux

// File: internal/iface/hwaddr_linux.go
// Author: momentics <momentics@gmail.com>
//
// Resolves an interface's MAC via the SIOCGIFHWADDR ioctl, matching
// query_and_add_mac_address in libktsn.c. x/sys/unix's Ifreq wrapper has
// no accessor for the hardware-address union member, so this issues the
// ioctl against a hand-laid-out struct matching Linux's struct ifreq
// instead, guarded to Linux the same way affinity_linux.go is.

package iface

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type ifreqHwaddr struct {
	name   [unix.IFNAMSIZ]byte
	family uint16
	data   [14]byte
}

func hardwareAddr(name string) ([6]byte, error) {
	var mac [6]byte
	if len(name) >= unix.IFNAMSIZ {
		return mac, fmt.Errorf("iface: interface name %q too long", name)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return mac, fmt.Errorf("iface: socket: %w", err)
	}
	defer unix.Close(fd)

	var req ifreqHwaddr
	copy(req.name[:], name)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCGIFHWADDR), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return mac, fmt.Errorf("iface: SIOCGIFHWADDR %s: %w", name, errno)
	}
	copy(mac[:], req.data[:6])
	return mac, nil
}
