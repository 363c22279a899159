package resolver

import (
	"fmt"

	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// DecodeErrorKind separates logs that are not ours from logs that are broken
type DecodeErrorKind int

const (
	// UnexpectedEvent is a log of some other event on a shared stream
	UnexpectedEvent DecodeErrorKind = iota
	// MalformedPayload is an Open log whose payload does not parse
	MalformedPayload
)

func (k DecodeErrorKind) String() string {
	switch k {
	case UnexpectedEvent:
		return "unexpected_event"
	case MalformedPayload:
		return "malformed_payload"
	}
	return "unknown"
}

// DecodeError is returned when a log cannot be decoded into an order
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnknownAssetError is returned when a token has no destination mapping
type UnknownAssetError struct {
	Token  [32]byte
	Domain uint64
}

func (e *UnknownAssetError) Error() string {
	return fmt.Sprintf("unknown asset %s on domain %d", translate.BytesToHexPrefixed(e.Token[:]), e.Domain)
}

// UnsupportedTopologyError is returned when an order cannot be filled with a single instruction
type UnsupportedTopologyError struct {
	Count  int
	Reason string
}

func (e *UnsupportedTopologyError) Error() string {
	if e.Reason != "" {
		return "unsupported topology: " + e.Reason
	}
	return fmt.Sprintf("unsupported topology: expected exactly 1 fill instruction, got %d", e.Count)
}
