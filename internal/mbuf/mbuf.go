// Package mbuf defines the paired mbuf/metadata slot pools carved out of
// the arena's data region: a fixed 2048-byte payload buffer per slot and a
// matching metadata record (txtime, addressing, transport kind), indexed
// 1:1 so a single uint32 slot index identifies both halves.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on kt_memory.h's kt_mbuf/kt_metadata/KT_METADATA_TRANSPORT_*
// layout, kept field-for-field so the wire format the shim writes and the
// sender reads never has to reconcile two different ideas of what a slot
// holds.
package mbuf

import "encoding/binary"

// PayloadSize is the fixed mbuf slot size (struct kt_mbuf).
const PayloadSize = 2048

// Transport enumerates KT_METADATA_TRANSPORT_*.
type Transport uint16

const (
	TransportEthernet Transport = 0x0001
	TransportUDP      Transport = 0x0002
)

// Metadata mirrors struct kt_metadata field-for-field.
type Metadata struct {
	Transport Transport
	TxTime    uint64
	EthSrc    [6]byte
	EthDst    [6]byte
	IPSrc     uint32
	IPDst     uint32
	UDPDport  uint16
	Size      uint32
}

// MetadataSize is the on-wire (shared-memory) encoding size of Metadata.
const MetadataSize = 2 + 8 + 6 + 6 + 4 + 4 + 2 + 4 // 36 bytes

// Encode serializes m into b, which must be at least MetadataSize bytes.
func (m Metadata) Encode(b []byte) {
	_ = b[MetadataSize-1]
	binary.LittleEndian.PutUint16(b[0:2], uint16(m.Transport))
	binary.LittleEndian.PutUint64(b[2:10], m.TxTime)
	copy(b[10:16], m.EthSrc[:])
	copy(b[16:22], m.EthDst[:])
	binary.LittleEndian.PutUint32(b[22:26], m.IPSrc)
	binary.LittleEndian.PutUint32(b[26:30], m.IPDst)
	binary.LittleEndian.PutUint16(b[30:32], m.UDPDport)
	binary.LittleEndian.PutUint32(b[32:36], m.Size)
}

// DecodeMetadata parses a Metadata out of b.
func DecodeMetadata(b []byte) Metadata {
	_ = b[MetadataSize-1]
	var m Metadata
	m.Transport = Transport(binary.LittleEndian.Uint16(b[0:2]))
	m.TxTime = binary.LittleEndian.Uint64(b[2:10])
	copy(m.EthSrc[:], b[10:16])
	copy(m.EthDst[:], b[16:22])
	m.IPSrc = binary.LittleEndian.Uint32(b[22:26])
	m.IPDst = binary.LittleEndian.Uint32(b[26:30])
	m.UDPDport = binary.LittleEndian.Uint16(b[30:32])
	m.Size = binary.LittleEndian.Uint32(b[32:36])
	return m
}

// Pool is a pair of flat, offset-addressed slot arrays living in the
// arena's data region: one slot of PayloadSize bytes per index, one slot
// of MetadataSize bytes per index.
type Pool struct {
	count    uint32
	payloads []byte
	metadata []byte
}

// NewPool wraps the payload and metadata regions (each already sized
// count*PayloadSize / count*MetadataSize by the caller) as a slot pool.
func NewPool(count uint32, payloads, metadata []byte) *Pool {
	return &Pool{count: count, payloads: payloads, metadata: metadata}
}

// Count returns the number of slots in the pool.
func (p *Pool) Count() uint32 { return p.count }

// Payload returns the payload buffer for slot idx.
func (p *Pool) Payload(idx uint32) []byte {
	off := idx * PayloadSize
	return p.payloads[off : off+PayloadSize]
}

// SetMetadata writes m into slot idx's metadata record.
func (p *Pool) SetMetadata(idx uint32, m Metadata) {
	off := idx * MetadataSize
	m.Encode(p.metadata[off : off+MetadataSize])
}

// Metadata reads slot idx's metadata record.
func (p *Pool) Metadata(idx uint32) Metadata {
	off := idx * MetadataSize
	return DecodeMetadata(p.metadata[off : off+MetadataSize])
}
