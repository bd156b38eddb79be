// Command ktsnd is the deadline-scheduled transmit daemon: it owns the
// shared-memory arena, carves the mbuf/metadata pools out of it, builds
// the tx/free rings, populates the free ring, and runs the sender's
// Drain/Dispatch loop against a NIC driver until signalled to stop.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on ktsnd.c's main(): EAL init is replaced by nic.NewDriver's
// build-tag selection, but the shared-memory bring-up, free-ring
// pre-population and signal-driven shutdown follow the same shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/unibo-tsn/ktsnd/affinity"
	"github.com/unibo-tsn/ktsnd/api"
	"github.com/unibo-tsn/ktsnd/control"
	"github.com/unibo-tsn/ktsnd/internal/arena"
	"github.com/unibo-tsn/ktsnd/internal/mbuf"
	"github.com/unibo-tsn/ktsnd/internal/nic"
	"github.com/unibo-tsn/ktsnd/internal/pagealloc"
	"github.com/unibo-tsn/ktsnd/internal/ringbuf"
	"github.com/unibo-tsn/ktsnd/internal/sender"
)

// Exit codes, documented for operators and scripts wrapping the daemon.
const (
	exitOK       = 0
	exitInitFail = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML daemon config file")
	portID := flag.Uint("port", 0, "NIC port id")
	queueID := flag.Uint("queue", 0, "NIC queue id")
	cpu := flag.Int("cpu", -1, "pin the sender loop to this CPU (-1 disables pinning)")
	printStats := flag.Bool("print-stats", false, "log a metrics snapshot before exiting")
	flag.Parse()

	cfg, err := control.LoadDaemonConfig(*configPath)
	if err != nil {
		log.Printf("ktsnd: config load failed: %v", err)
		return exitInitFail
	}
	if *portID != 0 {
		cfg.PortID = uint16(*portID)
	}
	if *queueID != 0 {
		cfg.QueueID = uint16(*queueID)
	}

	if err := bringUpAndRun(cfg, *cpu, *printStats); err != nil {
		log.Printf("ktsnd: %v", err)
		return exitInitFail
	}
	return exitOK
}

func bringUpAndRun(cfg control.DaemonConfig, cpu int, printStats bool) error {
	arena.Unlink(cfg.CtrlMemoryName, cfg.DataMemoryName)
	a, err := arena.Create(cfg.CtrlMemoryName, cfg.DataMemoryName, cfg.PageSize, cfg.DataMemorySize)
	if err != nil {
		return fmt.Errorf("arena create: %w", err)
	}
	defer a.Close()
	defer arena.Unlink(cfg.CtrlMemoryName, cfg.DataMemoryName)

	palloc, err := pagealloc.New(uint32(cfg.DataMemorySize), uint32(cfg.PageSize))
	if err != nil {
		return fmt.Errorf("pagealloc: %w", err)
	}

	layout, pool, txRing, freeRing, err := buildFabric(a, palloc, cfg.RingCapacity)
	if err != nil {
		return err
	}
	if err := a.WriteLayout(layout); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}

	if cpu >= 0 {
		th := affinity.NewThreadAffinity()
		if err := th.Pin(cpu, -1); err != nil {
			log.Printf("ktsnd: affinity pin failed (continuing unpinned): %v", err)
		}
	}

	driver := nic.NewDriver(cfg.PortID, cfg.QueueID)
	defer driver.Close()

	metrics := control.NewMetricsRegistry()
	store := control.NewDaemonConfigStore(cfg)
	control.RegisterReloadHook(func() {
		log.Printf("ktsnd: tx_delta reloaded to %dns", store.TxDeltaNanos())
	})

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("fabric.ring_capacity", func() any { return cfg.RingCapacity })
	probes.RegisterProbe("fabric.pagealloc", func() any { return palloc.Stats() })
	probes.RegisterProbe("fabric.metrics", func() any { return metrics.GetSnapshot() })

	s := sender.New(txRing, freeRing, int(cfg.RingCapacity), pool, driver, cfg.PortID, cfg.QueueID, store, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("ktsnd: shutdown signal received")
		cancel()
	}()

	log.Printf("ktsnd: entering main loop (port=%d queue=%d ring_cap=%d)", cfg.PortID, cfg.QueueID, cfg.RingCapacity)
	err = s.Run(ctx)

	if printStats {
		log.Printf("ktsnd: debug probes: %+v", probes.DumpState())
	}
	return err
}

// buildFabric builds the tx and free rings in process memory and carves
// the mbuf/metadata pools out of the arena's data region via the page
// allocator. The layout's ring offsets are written as 0: the rings are
// not placed in the arena.
func buildFabric(a *arena.Arena, palloc *pagealloc.Allocator, ringCap uint32) (arena.Layout, *mbuf.Pool, api.Ring, api.Ring, error) {
	txRing, err := ringbuf.New(ringCap)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("tx ring: %w", err)
	}
	freeRing, err := ringbuf.New(ringCap)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("free ring: %w", err)
	}

	slotCount := ringCap - 1 // matches the ring's usable capacity
	mbufOff, err := palloc.Alloc(slotCount * mbuf.PayloadSize)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("mbuf pool alloc: %w", err)
	}
	metaOff, err := palloc.Alloc(slotCount * mbuf.MetadataSize)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("metadata pool alloc: %w", err)
	}

	payloads, err := a.DataAt(mbufOff, slotCount*mbuf.PayloadSize)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("mbuf pool region: %w", err)
	}
	metadata, err := a.DataAt(metaOff, slotCount*mbuf.MetadataSize)
	if err != nil {
		return arena.Layout{}, nil, nil, nil, fmt.Errorf("metadata pool region: %w", err)
	}
	pool := mbuf.NewPool(slotCount, payloads, metadata)

	ids := make([]uint64, slotCount)
	for i := range ids {
		ids[i] = uint64(i)
	}
	freeRing.EnqueueBurst(ids, api.Variable)

	layout := arena.Layout{
		TxRingOff:       0,
		FreeRingOff:     0,
		MbufPoolOff:     mbufOff,
		MetadataPoolOff: metaOff,
	}
	return layout, pool, txRing, freeRing, nil
}
