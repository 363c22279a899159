package testutil

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/contracts"
	"github.com/speedrun-hq/gofast-relayer/pkg/gofast"
	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Fixture values shared by relayer tests
var (
	SettlerAddress = common.HexToAddress("0x92188c8200869b7bfB9A867C545ea723bD8AfEA1")
	UserAddress    = common.HexToAddress("0x56Ca414d41CD3C1188A4939b0D56417dA7Bb6DA2")
	USDCToken      = translate.EVMAddressToBytes32(common.HexToAddress(chains.ArbitrumUSDCAddress))
)

// DestinationSettler returns a deterministic 32-byte settler, bytes 1..32
func DestinationSettler() [32]byte {
	var settler [32]byte
	for i := range settler {
		settler[i] = byte(i + 1)
	}
	return settler
}

// NewOrder returns a Go Fast order from Arbitrum to Osmosis; nonce keeps ids distinct
func NewOrder(nonce uint32, amount uint64) *models.Order {
	order := &models.Order{
		Sender:            translate.EVMAddressToBytes32(UserAddress),
		Recipient:         crypto.Keccak256Hash([]byte("recipient")),
		AmountIn:          uint256.NewInt(amount + 10_000),
		AmountOut:         uint256.NewInt(amount),
		Nonce:             nonce,
		SourceDomain:      chains.ArbitrumDomain,
		DestinationDomain: chains.OsmosisDomain,
		TimeoutTimestamp:  uint64(time.Now().Add(time.Hour).Unix()),
	}
	id, err := gofast.ComputeID(order)
	if err != nil {
		panic(err)
	}
	order.ID = id
	return order
}

// OpenParams describes an Open log. Zero fields take the defaults of OpenLog.
type OpenParams struct {
	Order *models.Order
	// OrderID overrides the id derived from Order
	OrderID *common.Hash
	// OriginData overrides the encoding of Order
	OriginData []byte

	User               common.Address
	OriginChainID      int64
	OpenDeadline       uint32
	FillDeadline       uint32
	MaxSpent           []contracts.Output
	MinReceived        []contracts.Output
	FillInstructions   []contracts.FillInstruction
	DestinationChainID uint64

	Address     common.Address
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
}

// Leg builds an output of token on a domain
func Leg(token [32]byte, amount int64, domain int64) contracts.Output {
	return contracts.Output{
		Token:     token,
		Amount:    big.NewInt(amount),
		Recipient: crypto.Keccak256Hash([]byte("recipient")),
		ChainId:   big.NewInt(domain),
	}
}

// OpenLog ABI-encodes an Open event the way the origin settler emits it
func OpenLog(p OpenParams) (types.Log, error) {
	if p.Order == nil {
		p.Order = NewOrder(1, 5_000_000)
	}
	originData := p.OriginData
	if originData == nil {
		encoded, err := gofast.EncodeOrder(p.Order)
		if err != nil {
			return types.Log{}, err
		}
		originData = encoded
	}
	orderID := p.Order.ID
	if p.OrderID != nil {
		orderID = *p.OrderID
	}

	if p.User == (common.Address{}) {
		p.User = UserAddress
	}
	if p.OriginChainID == 0 {
		p.OriginChainID = chains.ArbitrumDomain
	}
	if p.FillDeadline == 0 {
		p.FillDeadline = uint32(time.Now().Add(time.Hour).Unix())
	}
	if p.OpenDeadline == 0 {
		p.OpenDeadline = p.FillDeadline
	}
	if p.MaxSpent == nil {
		p.MaxSpent = []contracts.Output{Leg(USDCToken, p.Order.AmountOut.ToBig().Int64(), chains.OsmosisDomain)}
	}
	if p.MinReceived == nil {
		p.MinReceived = []contracts.Output{Leg(USDCToken, p.Order.AmountIn.ToBig().Int64(), chains.ArbitrumDomain)}
	}
	if p.DestinationChainID == 0 {
		p.DestinationChainID = chains.OsmosisDomain
	}
	if p.FillInstructions == nil {
		p.FillInstructions = []contracts.FillInstruction{{
			DestinationChainId: p.DestinationChainID,
			DestinationSettler: DestinationSettler(),
			OriginData:         originData,
		}}
	}
	if p.Address == (common.Address{}) {
		p.Address = SettlerAddress
	}
	if p.BlockNumber == 0 {
		p.BlockNumber = 100
	}

	data, err := contracts.PackOpenData(contracts.ResolvedCrossChainOrder{
		User:             p.User,
		OriginChainId:    big.NewInt(p.OriginChainID),
		OpenDeadline:     p.OpenDeadline,
		FillDeadline:     p.FillDeadline,
		MaxSpent:         p.MaxSpent,
		MinReceived:      p.MinReceived,
		FillInstructions: p.FillInstructions,
	})
	if err != nil {
		return types.Log{}, err
	}

	return types.Log{
		Address:     p.Address,
		Topics:      []common.Hash{contracts.OpenEventID(), orderID},
		Data:        data,
		BlockNumber: p.BlockNumber,
		TxHash:      crypto.Keccak256Hash(orderID[:], big.NewInt(int64(p.BlockNumber)).Bytes()),
		TxIndex:     p.TxIndex,
		Index:       p.LogIndex,
	}, nil
}

// MustOpenLog is OpenLog for fixtures known to be valid
func MustOpenLog(p OpenParams) types.Log {
	log, err := OpenLog(p)
	if err != nil {
		panic(err)
	}
	return log
}

// ProcessIdLog builds a mailbox delivery log for messageID
func ProcessIdLog(mailbox common.Address, messageID common.Hash, block uint64) types.Log {
	return types.Log{
		Address:     mailbox,
		Topics:      []common.Hash{contracts.ProcessIdEventID(), messageID},
		BlockNumber: block,
		TxHash:      crypto.Keccak256Hash(messageID[:]),
	}
}
