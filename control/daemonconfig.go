// control/daemonconfig.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration for the ktsnd sender daemon, loaded from a YAML file
// and layered on top of ConfigStore so tx_delta can be changed at runtime
// via DaemonConfigStore.SetTxDeltaNanos without restarting the process.

package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DaemonConfig holds every tunable named in the design's data model and
// external-interfaces sections.
type DaemonConfig struct {
	DataMemoryName string `yaml:"data_memory_name"`
	CtrlMemoryName string `yaml:"ctrl_memory_name"`
	DataMemorySize int    `yaml:"data_memory_size"`
	PageSize       int    `yaml:"page_size"`
	RingCapacity   uint32 `yaml:"ring_capacity"`
	TxDeltaNanos   int64  `yaml:"tx_delta_nanos"`
	PortID         uint16 `yaml:"port_id"`
	QueueID        uint16 `yaml:"queue_id"`
}

// DefaultDaemonConfig mirrors the defaults named in spec §3/§4/§6.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		DataMemoryName: "ktsnd_data_memory",
		CtrlMemoryName: "ktsnd_meta_memory",
		DataMemorySize: 1 << 20, // 1 MiB
		PageSize:       4096,
		RingCapacity:   128,
		TxDeltaNanos:   50_000, // 50 µs
		PortID:         0,
		QueueID:        0,
	}
}

// LoadDaemonConfig reads a YAML file, overlaying it on DefaultDaemonConfig.
// A missing path is not an error: callers run on defaults.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	cfg := DefaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DaemonConfigStore wraps ConfigStore with typed tx_delta access: the
// sender loop reads the current value from a read-locked snapshot, and
// SetTxDeltaNanos pushes a new value without a restart, notifying
// listeners registered with OnReload.
type DaemonConfigStore struct {
	store *ConfigStore
}

// NewDaemonConfigStore seeds the store from cfg.
func NewDaemonConfigStore(cfg DaemonConfig) *DaemonConfigStore {
	s := NewConfigStore()
	s.SetConfig(map[string]any{"tx_delta_nanos": cfg.TxDeltaNanos})
	return &DaemonConfigStore{store: s}
}

// TxDeltaNanos returns the current tx_delta tunable.
func (d *DaemonConfigStore) TxDeltaNanos() int64 {
	snap := d.store.GetSnapshot()
	v, ok := snap["tx_delta_nanos"].(int64)
	if !ok {
		return DefaultDaemonConfig().TxDeltaNanos
	}
	return v
}

// SetTxDeltaNanos updates tx_delta and fires the listeners registered
// with OnReload.
func (d *DaemonConfigStore) SetTxDeltaNanos(v int64) {
	d.store.SetConfig(map[string]any{"tx_delta_nanos": v})
}

// OnReload forwards to the underlying ConfigStore.
func (d *DaemonConfigStore) OnReload(fn func()) {
	d.store.OnReload(fn)
}
