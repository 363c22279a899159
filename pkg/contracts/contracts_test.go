package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDs(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash([]byte("ProcessId(bytes32)")), ProcessIdEventID())
	assert.Equal(t,
		crypto.Keccak256Hash([]byte("Open(bytes32,(address,uint256,uint32,uint32,(bytes32,uint256,bytes32,uint256)[],(bytes32,uint256,bytes32,uint256)[],(uint64,bytes32,bytes)[]))")),
		OpenEventID(),
	)
}

func TestParseOpen(t *testing.T) {
	order := ResolvedCrossChainOrder{
		User:          common.HexToAddress("0x1111111111111111111111111111111111111111"),
		OriginChainId: big.NewInt(42161),
		OpenDeadline:  100,
		FillDeadline:  200,
		MaxSpent: []Output{{
			Token:     [32]byte{31: 1},
			Amount:    big.NewInt(5_000_000),
			Recipient: [32]byte{31: 2},
			ChainId:   big.NewInt(875),
		}},
		MinReceived: []Output{},
		FillInstructions: []FillInstruction{{
			DestinationChainId: 875,
			DestinationSettler: [32]byte{0: 9, 31: 9},
			OriginData:         []byte{0xde, 0xad},
		}},
	}
	data, err := PackOpenData(order)
	require.NoError(t, err)

	orderID := common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
	log := types.Log{
		Address: common.HexToAddress("0x92188c8200869b7bfB9A867C545ea723bD8AfEA1"),
		Topics:  []common.Hash{OpenEventID(), orderID},
		Data:    data,
	}

	filterer, err := NewGoFast7683Filterer(log.Address, nil)
	require.NoError(t, err)

	event, err := filterer.ParseOpen(log)
	require.NoError(t, err)
	assert.Equal(t, [32]byte(orderID), event.OrderId)
	assert.Equal(t, order.User, event.ResolvedOrder.User)
	assert.Equal(t, uint32(200), event.ResolvedOrder.FillDeadline)
	require.Len(t, event.ResolvedOrder.MaxSpent, 1)
	assert.Equal(t, int64(5_000_000), event.ResolvedOrder.MaxSpent[0].Amount.Int64())
	require.Len(t, event.ResolvedOrder.FillInstructions, 1)
	assert.Equal(t, []byte{0xde, 0xad}, event.ResolvedOrder.FillInstructions[0].OriginData)

	log.Topics[0] = ProcessIdEventID()
	_, err = filterer.ParseOpen(log)
	assert.ErrorIs(t, err, ErrEventSignatureMismatch)
}

func TestParseProcessId(t *testing.T) {
	messageID := common.HexToHash("0x01")
	filterer, err := NewMailboxFilterer(common.HexToAddress("0x979Ca5202784112f4738403dBec5D0F3B9daabB9"), nil)
	require.NoError(t, err)

	event, err := filterer.ParseProcessId(types.Log{Topics: []common.Hash{ProcessIdEventID(), messageID}})
	require.NoError(t, err)
	assert.Equal(t, [32]byte(messageID), event.MessageId)
}
