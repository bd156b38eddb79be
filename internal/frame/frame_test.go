package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildProducesExpectedHeaderLayout(t *testing.T) {
	payload := []byte("hello tsn")
	p := Params{
		SrcMAC:  [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:  [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		SrcIP:   0xC0A80001, // 192.168.0.1
		DstIP:   0xC0A800FE, // 192.168.0.254
		DstPort: 5000,
		Payload: payload,
	}

	buf := make([]byte, HeaderLen+len(payload))
	out := Build(buf, p)
	require.Len(t, out, HeaderLen+len(payload))

	require.Equal(t, p.DstMAC[:], out[0:6])
	require.Equal(t, p.SrcMAC[:], out[6:12])
	require.Equal(t, uint16(0x0800), binary.BigEndian.Uint16(out[12:14]))

	ip := out[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]
	require.Equal(t, byte(0x45), ip[0])
	require.Equal(t, byte(64), ip[8])
	require.Equal(t, byte(17), ip[9])
	require.Equal(t, p.SrcIP, binary.BigEndian.Uint32(ip[12:16]))
	require.Equal(t, p.DstIP, binary.BigEndian.Uint32(ip[16:20]))

	udp := out[EthHeaderLen+IPv4HeaderLen : HeaderLen]
	require.Equal(t, uint16(9999), binary.BigEndian.Uint16(udp[0:2]))
	require.Equal(t, p.DstPort, binary.BigEndian.Uint16(udp[2:4]))
	require.Equal(t, uint16(UDPHeaderLen+len(payload)), binary.BigEndian.Uint16(udp[4:6]))

	require.Equal(t, payload, out[HeaderLen:])
}

func TestIPv4ChecksumVerifies(t *testing.T) {
	p := Params{DstPort: 1, Payload: []byte("x")}
	buf := make([]byte, HeaderLen+len(p.Payload))
	out := Build(buf, p)
	ip := out[EthHeaderLen : EthHeaderLen+IPv4HeaderLen]

	var sum uint32
	for i := 0; i < len(ip); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(ip[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	require.Equal(t, uint16(0xffff), uint16(sum))
}
