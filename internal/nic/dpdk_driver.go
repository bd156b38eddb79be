//go:build dpdk
// +build dpdk

// File: internal/nic/dpdk_driver.go
// Author: momentics <momentics@gmail.com>
//
// DPDK-backed Driver. Kept as a build-tag-gated seam the way the teacher
// gates its DPDK transport: the EAL/port/queue bring-up lives behind the
// 'dpdk' build tag so the rest of the module builds without a DPDK
// toolchain present.

package nic

func newDPDKDriver(portID, queueID uint16) (Driver, error) {
	// Real EAL/port/queue init would happen here, mirroring ktsnd.c's
	// rte_eal_init / rte_eth_dev_configure / rte_eth_tx_queue_setup.
	return &dpdkDriver{portID: portID, queueID: queueID}, nil
}

type dpdkDriver struct {
	portID, queueID uint16
}

func (d *dpdkDriver) Submit(portID, queueID uint16, frame []byte) error {
	// rte_eth_tx_burst(portID, queueID, &mbuf, 1) equivalent.
	return nil
}

func (d *dpdkDriver) Features() Features {
	return Features{ZeroCopy: true, Batch: true, NUMAAware: true, OS: []string{"linux"}}
}

func (d *dpdkDriver) Close() error { return nil }
