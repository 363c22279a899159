// Package translate converts addresses and payloads between EVM and Cosmos encodings.
package translate

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

// Bytes32Length is the width used for addresses inside cross-domain messages
const Bytes32Length = 32

// StripHexPrefix removes a leading 0x or 0X
func StripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// HexToBytes decodes a hex string, with or without a 0x prefix
func HexToBytes(s string) ([]byte, error) {
	raw := StripHexPrefix(s)
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("invalid hex string %q: odd length", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return b, nil
}

// BytesToHex encodes bytes as lowercase hex without a prefix
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// BytesToHexPrefixed encodes bytes as lowercase hex with a 0x prefix
func BytesToHexPrefixed(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// BytesToBech32 encodes raw address bytes as a bech32 string with the given prefix
func BytesToBech32(prefix string, b []byte) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty bech32 prefix")
	}
	if len(b) == 0 {
		return "", fmt.Errorf("empty address bytes")
	}
	converted, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	addr, err := bech32.Encode(prefix, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode bech32 address: %w", err)
	}
	return addr, nil
}

// Bech32ToBytes decodes a bech32 address into its prefix and raw bytes
func Bech32ToBytes(addr string) (string, []byte, error) {
	prefix, data, err := bech32.Decode(addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode bech32 address %q: %w", addr, err)
	}
	b, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("failed to convert address bits: %w", err)
	}
	return prefix, b, nil
}

// PadTo32 left-pads b with zeros to 32 bytes
func PadTo32(b []byte) ([Bytes32Length]byte, error) {
	var out [Bytes32Length]byte
	if len(b) > Bytes32Length {
		return out, fmt.Errorf("value of %d bytes does not fit in bytes32", len(b))
	}
	copy(out[Bytes32Length-len(b):], b)
	return out, nil
}

// EVMAddressToBytes32 left-pads a 20 byte EVM address to bytes32
func EVMAddressToBytes32(addr common.Address) [Bytes32Length]byte {
	var out [Bytes32Length]byte
	copy(out[Bytes32Length-common.AddressLength:], addr.Bytes())
	return out
}

// Bytes32ToEVMAddress recovers an EVM address from a left-padded bytes32.
// It fails if the padding is not zero.
func Bytes32ToEVMAddress(b [Bytes32Length]byte) (common.Address, error) {
	pad := Bytes32Length - common.AddressLength
	for _, v := range b[:pad] {
		if v != 0 {
			return common.Address{}, fmt.Errorf("bytes32 %s is not a padded EVM address", BytesToHexPrefixed(b[:]))
		}
	}
	return common.BytesToAddress(b[pad:]), nil
}

// BytesToBase64 encodes bytes with standard padded base64
func BytesToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Base64ToBytes decodes standard padded base64
func Base64ToBytes(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 string: %w", err)
	}
	return b, nil
}

// HexToBase64 re-encodes a hex payload as base64. The 0x prefix never reaches the output.
func HexToBase64(s string) (string, error) {
	b, err := HexToBytes(s)
	if err != nil {
		return "", err
	}
	return BytesToBase64(b), nil
}

// Bytes32ToText reads a zero padded bytes32 as text, e.g. a denom written into a token slot.
// It returns false when the content is empty or not printable.
func Bytes32ToText(b [Bytes32Length]byte) (string, bool) {
	trimmed := bytes.Trim(b[:], "\x00")
	if len(trimmed) == 0 {
		return "", false
	}
	s := string(trimmed)
	for _, r := range s {
		if r < 0x21 || r > 0x7e {
			return "", false
		}
	}
	return strings.TrimSpace(s), true
}
