package gofast

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/models"
)

func sampleOrder() *models.Order {
	return &models.Order{
		Sender:            crypto.Keccak256Hash([]byte("order_sender")),
		Recipient:         crypto.Keccak256Hash([]byte("order_recipient")),
		AmountIn:          uint256.NewInt(1_000000),
		AmountOut:         uint256.NewInt(2_000000),
		Nonce:             5,
		SourceDomain:      1,
		DestinationDomain: 2,
		TimeoutTimestamp:  1234567890,
		Data:              []byte("order_data"),
	}
}

func TestComputeIDMatchesGateway(t *testing.T) {
	id, err := ComputeID(sampleOrder())
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x14c730882cf88fb2db99ee836557262c28a9d9fa9b7b90d6c2da63a51daa1b39"), id)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		order *models.Order
	}{
		{name: "with data", order: sampleOrder()},
		{
			name: "without data",
			order: func() *models.Order {
				o := sampleOrder()
				o.Data = nil
				return o
			}(),
		},
		{
			name: "max amounts",
			order: func() *models.Order {
				o := sampleOrder()
				max128 := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
				o.AmountIn = max128
				o.AmountOut = max128
				return o
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeOrder(tt.order)
			require.NoError(t, err)
			assert.Len(t, encoded, HeaderLength+len(tt.order.Data))

			decoded, err := DecodeOrder(encoded)
			require.NoError(t, err)
			assert.Equal(t, OrderID(encoded), decoded.ID)
			assert.Equal(t, tt.order.Sender, decoded.Sender)
			assert.Equal(t, tt.order.Recipient, decoded.Recipient)
			assert.True(t, tt.order.AmountIn.Eq(decoded.AmountIn))
			assert.True(t, tt.order.AmountOut.Eq(decoded.AmountOut))
			assert.Equal(t, tt.order.Nonce, decoded.Nonce)
			assert.Equal(t, tt.order.SourceDomain, decoded.SourceDomain)
			assert.Equal(t, tt.order.DestinationDomain, decoded.DestinationDomain)
			assert.Equal(t, tt.order.TimeoutTimestamp, decoded.TimeoutTimestamp)
			assert.Equal(t, tt.order.Data, decoded.Data)
		})
	}
}

func TestEncodeOrderRejectsWideAmounts(t *testing.T) {
	o := sampleOrder()
	o.AmountIn = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	_, err := EncodeOrder(o)
	assert.Error(t, err)

	o = sampleOrder()
	o.AmountOut = nil
	_, err = EncodeOrder(o)
	assert.Error(t, err)
}

func TestDecodeOrderErrors(t *testing.T) {
	_, err := DecodeOrder(make([]byte, HeaderLength-1))
	assert.Error(t, err)

	encoded, err := EncodeOrder(sampleOrder())
	require.NoError(t, err)
	encoded[amountInOffset] = 1
	_, err = DecodeOrder(encoded)
	assert.Error(t, err)
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleOrder())
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "d6e9fe1e13a15fa49f0b31e2a6e2365fcbe1a571a8ce319573a5435b672ed419", fields["sender"])
	assert.Equal(t, "1000000", fields["amount_in"])
	assert.Equal(t, "2000000", fields["amount_out"])
	assert.Equal(t, float64(5), fields["nonce"])
	assert.Equal(t, "6f726465725f64617461", fields["data"])

	o := sampleOrder()
	o.Data = nil
	out, err = ToJSON(o)
	require.NoError(t, err)
	raw, err = json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":null`)
}
