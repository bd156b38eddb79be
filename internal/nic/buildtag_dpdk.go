//go:build dpdk
// +build dpdk

package nic

const dpdkBuildTagEnabled = true
