// Package arena manages the two mmap'd shared-memory regions the sender
// and the interception shim both attach to: a one-page control region
// holding a layout header, and a data region (default 1 MiB) holding the
// mbuf/metadata pools carved out of it by pagealloc.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on AlephTX's feeder/shm/seqlock.go for the /dev/shm-file +
// mmap(MAP_SHARED) pattern, but using golang.org/x/sys/unix directly
// (rather than syscall) so the same import serves the shim's raw-socket
// work too. Every reference the control header stores is a byte offset
// into the data region, never an absolute pointer: offsets are the only
// thing that stay valid once a second process attaches the same region
// at a different virtual address.
package arena

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultDataSize is the data region size named in the design's data
// model (1 MiB) absent an operator override.
const DefaultDataSize = 1 << 20

// controlHeaderSize is 4 little-endian uint32 offsets; one control page
// comfortably holds it with room to spare for future fields.
const controlHeaderSize = 4 * 4

// Layout is the control-region header: byte offsets of each pool within
// the data region.
type Layout struct {
	TxRingOff       uint32
	FreeRingOff     uint32
	MbufPoolOff     uint32
	MetadataPoolOff uint32
}

// Arena owns the two mmap'd regions and the files backing them.
type Arena struct {
	ctrlFile *os.File
	dataFile *os.File
	ctrl     []byte
	data     []byte
}

func shmPath(name string) string {
	return "/dev/shm/" + name
}

func openBacking(name string, size int, create bool) (*os.File, []byte, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(shmPath(name), flags, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("arena: open %s: %w", name, err)
	}
	if create {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("arena: truncate %s: %w", name, err)
		}
	}
	region, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("arena: mmap %s: %w", name, err)
	}
	return f, region, nil
}

// Create allocates and maps fresh control and data regions, named
// ctrlName/dataName, sized pageSize and dataSize respectively.
func Create(ctrlName, dataName string, pageSize, dataSize int) (*Arena, error) {
	if dataSize <= 0 {
		dataSize = DefaultDataSize
	}
	if pageSize <= 0 {
		pageSize = 4096
	}

	ctrlFile, ctrl, err := openBacking(ctrlName, pageSize, true)
	if err != nil {
		return nil, err
	}
	dataFile, data, err := openBacking(dataName, dataSize, true)
	if err != nil {
		unix.Munmap(ctrl)
		ctrlFile.Close()
		return nil, err
	}

	return &Arena{ctrlFile: ctrlFile, dataFile: dataFile, ctrl: ctrl, data: data}, nil
}

// Attach maps existing control and data regions previously created by
// Create, used by a second process (or the shim) that joins the fabric.
func Attach(ctrlName, dataName string, pageSize, dataSize int) (*Arena, error) {
	if dataSize <= 0 {
		dataSize = DefaultDataSize
	}
	if pageSize <= 0 {
		pageSize = 4096
	}
	ctrlFile, ctrl, err := openBacking(ctrlName, pageSize, false)
	if err != nil {
		return nil, err
	}
	dataFile, data, err := openBacking(dataName, dataSize, false)
	if err != nil {
		unix.Munmap(ctrl)
		ctrlFile.Close()
		return nil, err
	}
	return &Arena{ctrlFile: ctrlFile, dataFile: dataFile, ctrl: ctrl, data: data}, nil
}

// WriteLayout serializes l into the control region.
func (a *Arena) WriteLayout(l Layout) error {
	if len(a.ctrl) < controlHeaderSize {
		return fmt.Errorf("arena: control region too small for layout header")
	}
	binary.LittleEndian.PutUint32(a.ctrl[0:4], l.TxRingOff)
	binary.LittleEndian.PutUint32(a.ctrl[4:8], l.FreeRingOff)
	binary.LittleEndian.PutUint32(a.ctrl[8:12], l.MbufPoolOff)
	binary.LittleEndian.PutUint32(a.ctrl[12:16], l.MetadataPoolOff)
	return nil
}

// ReadLayout deserializes the layout header from the control region.
func (a *Arena) ReadLayout() (Layout, error) {
	if len(a.ctrl) < controlHeaderSize {
		return Layout{}, fmt.Errorf("arena: control region too small for layout header")
	}
	return Layout{
		TxRingOff:       binary.LittleEndian.Uint32(a.ctrl[0:4]),
		FreeRingOff:     binary.LittleEndian.Uint32(a.ctrl[4:8]),
		MbufPoolOff:     binary.LittleEndian.Uint32(a.ctrl[8:12]),
		MetadataPoolOff: binary.LittleEndian.Uint32(a.ctrl[12:16]),
	}, nil
}

// DataAt returns the data-region slice [offset, offset+length).
func (a *Arena) DataAt(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(a.data)) {
		return nil, fmt.Errorf("arena: range [%d,%d) out of bounds (data size %d)", offset, end, len(a.data))
	}
	return a.data[offset:end], nil
}

// DataLen returns the size of the data region in bytes.
func (a *Arena) DataLen() int { return len(a.data) }

// Close unmaps both regions and closes their backing files.
func (a *Arena) Close() error {
	var firstErr error
	if err := unix.Munmap(a.ctrl); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := unix.Munmap(a.data); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.ctrlFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.dataFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Unlink removes the /dev/shm-backed files for ctrlName/dataName, used on
// clean shutdown so a restarted daemon doesn't attach stale state.
func Unlink(ctrlName, dataName string) {
	os.Remove(shmPath(ctrlName))
	os.Remove(shmPath(dataName))
}
