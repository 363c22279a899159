package translate

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestHexToBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "prefixed", input: "0xdeadbeef", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "upper prefix", input: "0XDEADBEEF", want: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "bare", input: "00ff", want: []byte{0x00, 0xff}},
		{name: "empty", input: "0x", want: []byte{}},
		{name: "odd length", input: "0xabc", wantErr: true},
		{name: "invalid chars", input: "0xzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HexToBytes(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, b := range [][]byte{{}, {0}, seq(20, 1), seq(32, 200), seq(149, 0)} {
		decoded, err := HexToBytes(BytesToHex(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)

		decoded, err = HexToBytes(BytesToHexPrefixed(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestBytesToBech32(t *testing.T) {
	t.Run("known vectors", func(t *testing.T) {
		addr, err := BytesToBech32("osmo", seq(32, 1))
		require.NoError(t, err)
		assert.Equal(t, "osmo1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5z5tpwxqergd3c8g7rusq4z5ese", addr)

		addr, err = BytesToBech32("osmo", seq(20, 0))
		require.NoError(t, err)
		assert.Equal(t, "osmo1qqqsyqcyq5rqwzqfpg9scrgwpugpzysntdz28t", addr)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, prefix := range []string{"osmo", "neutron", "cosmos"} {
			for _, b := range [][]byte{seq(20, 7), seq(32, 100), make([]byte, 32)} {
				addr, err := BytesToBech32(prefix, b)
				require.NoError(t, err)

				gotPrefix, decoded, err := Bech32ToBytes(addr)
				require.NoError(t, err)
				assert.Equal(t, prefix, gotPrefix)
				assert.Equal(t, b, decoded)
			}
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := BytesToBech32("", seq(20, 0))
		assert.Error(t, err)
		_, err = BytesToBech32("osmo", nil)
		assert.Error(t, err)
	})

	t.Run("rejects bad checksum", func(t *testing.T) {
		_, _, err := Bech32ToBytes("osmo1qqqsyqcyq5rqwzqfpg9scrgwpugpzysntdz28q")
		assert.Error(t, err)
	})
}

func TestPadTo32(t *testing.T) {
	padded, err := PadTo32([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), padded[30])
	assert.Equal(t, byte(0x02), padded[31])
	assert.Equal(t, make([]byte, 30), padded[:30])

	full, err := PadTo32(seq(32, 1))
	require.NoError(t, err)
	assert.Equal(t, seq(32, 1), full[:])

	_, err = PadTo32(seq(33, 0))
	assert.Error(t, err)
}

func TestEVMAddressBytes32RoundTrip(t *testing.T) {
	addr := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	padded := EVMAddressToBytes32(addr)

	back, err := Bytes32ToEVMAddress(padded)
	require.NoError(t, err)
	assert.Equal(t, addr, back)

	padded[0] = 1
	_, err = Bytes32ToEVMAddress(padded)
	assert.Error(t, err)
}

func TestBase64(t *testing.T) {
	for _, b := range [][]byte{{}, {0xff}, seq(149, 3)} {
		decoded, err := Base64ToBytes(BytesToBase64(b))
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}

	encoded, err := HexToBase64("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "3q2+7w==", encoded)

	_, err = Base64ToBytes("not base64!")
	assert.Error(t, err)
}

func TestBytes32ToText(t *testing.T) {
	var slot [32]byte
	copy(slot[:], "uosmo")
	text, ok := Bytes32ToText(slot)
	assert.True(t, ok)
	assert.Equal(t, "uosmo", text)

	_, ok = Bytes32ToText([32]byte{})
	assert.False(t, ok)

	_, ok = Bytes32ToText(EVMAddressToBytes32(common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")))
	assert.False(t, ok)
}
