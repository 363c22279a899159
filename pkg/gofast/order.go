// Package gofast implements the Go Fast transfer order wire format.
package gofast

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/speedrun-hq/gofast-relayer/pkg/models"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Byte offsets of the fixed-size order header
const (
	senderOffset            = 0
	recipientOffset         = 32
	amountInOffset          = 64
	amountOutOffset         = 96
	nonceOffset             = 128
	sourceDomainOffset      = 132
	destinationDomainOffset = 136
	timeoutOffset           = 140

	// HeaderLength is the size of an encoded order without its data payload
	HeaderLength = 148
)

// EncodeOrder serializes an order into the byte layout hashed for its id
func EncodeOrder(o *models.Order) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("nil order")
	}
	if err := checkUint128("amount_in", o.AmountIn); err != nil {
		return nil, err
	}
	if err := checkUint128("amount_out", o.AmountOut); err != nil {
		return nil, err
	}

	b := make([]byte, HeaderLength, HeaderLength+len(o.Data))
	copy(b[senderOffset:recipientOffset], o.Sender[:])
	copy(b[recipientOffset:amountInOffset], o.Recipient[:])
	amountIn := o.AmountIn.Bytes32()
	copy(b[amountInOffset:amountOutOffset], amountIn[:])
	amountOut := o.AmountOut.Bytes32()
	copy(b[amountOutOffset:nonceOffset], amountOut[:])
	binary.BigEndian.PutUint32(b[nonceOffset:], o.Nonce)
	binary.BigEndian.PutUint32(b[sourceDomainOffset:], o.SourceDomain)
	binary.BigEndian.PutUint32(b[destinationDomainOffset:], o.DestinationDomain)
	binary.BigEndian.PutUint64(b[timeoutOffset:], o.TimeoutTimestamp)
	return append(b, o.Data...), nil
}

// DecodeOrder parses an encoded order and computes its id
func DecodeOrder(b []byte) (*models.Order, error) {
	if len(b) < HeaderLength {
		return nil, fmt.Errorf("order payload too short: %d bytes, need at least %d", len(b), HeaderLength)
	}

	amountIn, err := readUint128("amount_in", b[amountInOffset:amountOutOffset])
	if err != nil {
		return nil, err
	}
	amountOut, err := readUint128("amount_out", b[amountOutOffset:nonceOffset])
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:                OrderID(b),
		AmountIn:          amountIn,
		AmountOut:         amountOut,
		Nonce:             binary.BigEndian.Uint32(b[nonceOffset:]),
		SourceDomain:      binary.BigEndian.Uint32(b[sourceDomainOffset:]),
		DestinationDomain: binary.BigEndian.Uint32(b[destinationDomainOffset:]),
		TimeoutTimestamp:  binary.BigEndian.Uint64(b[timeoutOffset:]),
	}
	copy(o.Sender[:], b[senderOffset:recipientOffset])
	copy(o.Recipient[:], b[recipientOffset:amountInOffset])
	if len(b) > HeaderLength {
		o.Data = append([]byte(nil), b[HeaderLength:]...)
	}
	return o, nil
}

// OrderID is the keccak256 hash of the encoded order
func OrderID(encoded []byte) common.Hash {
	return crypto.Keccak256Hash(encoded)
}

// ComputeID encodes the order and returns its id
func ComputeID(o *models.Order) (common.Hash, error) {
	b, err := EncodeOrder(o)
	if err != nil {
		return common.Hash{}, err
	}
	return OrderID(b), nil
}

// OrderJSON is the JSON shape the destination gateway expects for an order.
// Binary fields are unprefixed lowercase hex and 128-bit amounts are decimal strings.
type OrderJSON struct {
	Sender            string  `json:"sender"`
	Recipient         string  `json:"recipient"`
	AmountIn          string  `json:"amount_in"`
	AmountOut         string  `json:"amount_out"`
	Nonce             uint32  `json:"nonce"`
	SourceDomain      uint32  `json:"source_domain"`
	DestinationDomain uint32  `json:"destination_domain"`
	TimeoutTimestamp  uint64  `json:"timeout_timestamp"`
	Data              *string `json:"data"`
}

// ToJSON converts an order to the gateway JSON shape
func ToJSON(o *models.Order) (OrderJSON, error) {
	if o == nil {
		return OrderJSON{}, fmt.Errorf("nil order")
	}
	if err := checkUint128("amount_in", o.AmountIn); err != nil {
		return OrderJSON{}, err
	}
	if err := checkUint128("amount_out", o.AmountOut); err != nil {
		return OrderJSON{}, err
	}

	out := OrderJSON{
		Sender:            translate.BytesToHex(o.Sender[:]),
		Recipient:         translate.BytesToHex(o.Recipient[:]),
		AmountIn:          o.AmountIn.Dec(),
		AmountOut:         o.AmountOut.Dec(),
		Nonce:             o.Nonce,
		SourceDomain:      o.SourceDomain,
		DestinationDomain: o.DestinationDomain,
		TimeoutTimestamp:  o.TimeoutTimestamp,
	}
	if len(o.Data) > 0 {
		data := translate.BytesToHex(o.Data)
		out.Data = &data
	}
	return out, nil
}

func checkUint128(field string, v *uint256.Int) error {
	if v == nil {
		return fmt.Errorf("%s is not set", field)
	}
	if v.BitLen() > 128 {
		return fmt.Errorf("%s %s exceeds 128 bits", field, v.Dec())
	}
	return nil
}

func readUint128(field string, word []byte) (*uint256.Int, error) {
	for _, v := range word[:16] {
		if v != 0 {
			return nil, fmt.Errorf("%s exceeds 128 bits", field)
		}
	}
	return new(uint256.Int).SetBytes(word[16:]), nil
}
