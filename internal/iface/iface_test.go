package iface

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameSubnetMatchesWithinMask(t *testing.T) {
	mask := [4]byte{255, 255, 255, 0}
	a := [4]byte{192, 168, 1, 10}
	b := [4]byte{192, 168, 1, 200}
	require.True(t, sameSubnet(a, b, mask))
}

func TestSameSubnetRejectsDifferentNetworks(t *testing.T) {
	mask := [4]byte{255, 255, 255, 0}
	a := [4]byte{192, 168, 1, 10}
	b := [4]byte{192, 168, 2, 10}
	require.False(t, sameSubnet(a, b, mask))
}

func TestTableByNetFindsMatchingInterface(t *testing.T) {
	tbl := NewTable()
	tbl.byIx[1] = &Interface{
		Index:   1,
		Name:    "eth0",
		Addr:    [4]byte{10, 0, 0, 1},
		Netmask: [4]byte{255, 255, 255, 0},
	}

	found, ok := tbl.ByNet([4]byte{10, 0, 0, 200})
	require.True(t, ok)
	require.Equal(t, "eth0", found.Name)

	_, ok = tbl.ByNet([4]byte{172, 16, 0, 1})
	require.False(t, ok)
}

func TestTableByIndexAndLen(t *testing.T) {
	tbl := NewTable()
	require.Equal(t, 0, tbl.Len())
	tbl.byIx[3] = &Interface{Index: 3, Name: "lo"}
	require.Equal(t, 1, tbl.Len())

	e, ok := tbl.ByIndex(3)
	require.True(t, ok)
	require.Equal(t, "lo", e.Name)

	_, ok = tbl.ByIndex(99)
	require.False(t, ok)
}
