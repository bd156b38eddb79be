// Package iface discovers local IPv4 network interfaces and resolves
// their hardware addresses, the information the interception shim needs
// to match a sendmsg() destination to an outgoing interface and to fill
// in a frame's source MAC.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on libktsn.c's query_interfaces()/query_and_add_mac_address():
// enumerate interfaces via net.Interfaces()/Addrs() (Go's portable
// equivalent of getifaddrs), then resolve each interface's MAC with the
// SIOCGIFHWADDR ioctl the same way the original does. Newly discovered
// interfaces are staged through an eapache/queue.Queue before being
// merged into the live map: Refresh can be called repeatedly (e.g. on a
// hot-reload tick) and only genuinely new interfaces pay the ioctl cost.
package iface

import (
	"fmt"
	"net"
	"sync"

	"github.com/eapache/queue"
)

// Interface mirrors struct kt_interface: index, name, address, netmask
// and resolved MAC.
type Interface struct {
	Index   int
	Name    string
	Addr    [4]byte // IPv4, network byte order
	Netmask [4]byte
	MAC     [6]byte
}

// sameSubnet mirrors is_same_subnetwork: two addresses are on the same
// link if they agree under the interface's netmask.
func sameSubnet(a, b [4]byte, mask [4]byte) bool {
	for i := 0; i < 4; i++ {
		if (a[i] & mask[i]) != (b[i] & mask[i]) {
			return false
		}
	}
	return true
}

// Table is the live, queryable set of discovered interfaces.
type Table struct {
	mu   sync.RWMutex
	byIx map[int]*Interface
}

// NewTable returns an empty interface table.
func NewTable() *Table {
	return &Table{byIx: make(map[int]*Interface)}
}

// Refresh enumerates the host's IPv4 interfaces, stages any not already
// known through a staging queue, resolves each new one's MAC, and merges
// them into the live table. Existing entries are left untouched.
func (t *Table) Refresh() error {
	sysIfaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("iface: enumerate: %w", err)
	}

	t.mu.RLock()
	staging := queue.New()
	for _, ifi := range sysIfaces {
		if _, known := t.byIx[ifi.Index]; known {
			continue
		}
		staging.Add(ifi)
	}
	t.mu.RUnlock()

	var fresh []*Interface
	for staging.Length() > 0 {
		ifi := staging.Remove().(net.Interface)
		entry, err := resolve(ifi)
		if err != nil {
			continue // interface without a usable IPv4 address, or MAC lookup failed
		}
		fresh = append(fresh, entry)
	}

	if len(fresh) == 0 {
		return nil
	}
	t.mu.Lock()
	for _, e := range fresh {
		t.byIx[e.Index] = e
	}
	t.mu.Unlock()
	return nil
}

func resolve(ifi net.Interface) (*Interface, error) {
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		var addr, mask [4]byte
		copy(addr[:], ip4)
		copy(mask[:], net.IP(ipnet.Mask).To4())

		mac, err := hardwareAddr(ifi.Name)
		if err != nil {
			return nil, err
		}

		return &Interface{
			Index:   ifi.Index,
			Name:    ifi.Name,
			Addr:    addr,
			Netmask: mask,
			MAC:     mac,
		}, nil
	}
	return nil, fmt.Errorf("iface: %s has no usable IPv4 address", ifi.Name)
}

// Put inserts or replaces an interface entry directly, bypassing
// Refresh's enumeration/ioctl pass. Used by callers (and tests) that
// already have interface data from another source.
func (t *Table) Put(e *Interface) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byIx[e.Index] = e
}

// ByIndex looks up a discovered interface by index.
func (t *Table) ByIndex(ifindex int) (*Interface, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byIx[ifindex]
	return e, ok
}

// ByNet finds the interface whose subnet contains addr, mirroring
// kt_interface_get_by_net's linear scan.
func (t *Table) ByNet(addr [4]byte) (*Interface, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.byIx {
		if sameSubnet(e.Addr, addr, e.Netmask) {
			return e, true
		}
	}
	return nil, false
}

// Len reports how many interfaces are currently known.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byIx)
}
