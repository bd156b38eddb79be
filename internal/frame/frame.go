// Package frame builds the Ethernet II / IPv4 / UDP frame the sender hands
// to the NIC driver once a metadata record's deadline comes due.
//
// Author: momentics <momentics@gmail.com>
//
// Grounded on ktsnd.c's prepare_packet(): IHL=5, TTL=64, protocol=UDP,
// computed IPv4 header checksum, UDP checksum left at zero (IPv4 allows
// it), source UDP port fixed at 9999. Header sizes and field order match
// the original byte-for-byte so a packet capture of this port's output is
// indistinguishable from the original DPDK sender's.
package frame

import "encoding/binary"

const (
	EthHeaderLen = 14
	IPv4HeaderLen = 20
	UDPHeaderLen  = 8
	HeaderLen     = EthHeaderLen + IPv4HeaderLen + UDPHeaderLen

	etherTypeIPv4 = 0x0800
	ipProtoUDP    = 17
	srcUDPPort    = 9999
)

// Params carries everything prepare_packet needed beyond the payload
// itself.
type Params struct {
	SrcMAC   [6]byte
	DstMAC   [6]byte
	SrcIP    uint32 // host byte order
	DstIP    uint32 // host byte order
	DstPort  uint16 // host byte order
	Payload  []byte
}

// Build assembles a full Ethernet/IPv4/UDP frame into dst, which must be
// at least HeaderLen+len(p.Payload) bytes, and returns the slice actually
// used. Keeping the caller-supplied buffer avoids a per-packet allocation
// on the sender's hot path.
func Build(dst []byte, p Params) []byte {
	total := HeaderLen + len(p.Payload)
	buf := dst[:total]

	// Ethernet II header.
	copy(buf[0:6], p.DstMAC[:])
	copy(buf[6:12], p.SrcMAC[:])
	binary.BigEndian.PutUint16(buf[12:14], etherTypeIPv4)

	// IPv4 header.
	ip := buf[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	ip[0] = 0x45 // version 4, IHL 5
	ip[1] = 0    // type of service
	binary.BigEndian.PutUint16(ip[2:4], uint16(IPv4HeaderLen+UDPHeaderLen+len(p.Payload)))
	binary.BigEndian.PutUint16(ip[4:6], 0) // identification
	binary.BigEndian.PutUint16(ip[6:8], 0) // flags/fragment offset
	ip[8] = 64                             // TTL
	ip[9] = ipProtoUDP
	binary.BigEndian.PutUint16(ip[10:12], 0) // checksum placeholder
	binary.BigEndian.PutUint32(ip[12:16], p.SrcIP)
	binary.BigEndian.PutUint32(ip[16:20], p.DstIP)
	binary.BigEndian.PutUint16(ip[10:12], ipv4Checksum(ip))

	// UDP header.
	udp := buf[EthHeaderLen+IPv4HeaderLen : EthHeaderLen+IPv4HeaderLen+UDPHeaderLen]
	binary.BigEndian.PutUint16(udp[0:2], srcUDPPort)
	binary.BigEndian.PutUint16(udp[2:4], p.DstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(UDPHeaderLen+len(p.Payload)))
	binary.BigEndian.PutUint16(udp[6:8], 0) // checksum left unset, as the original does

	copy(buf[HeaderLen:], p.Payload)
	return buf
}

// ipv4Checksum computes the standard one's-complement checksum over a
// 20-byte IPv4 header with the checksum field itself zeroed.
func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i < len(header); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
