package contracts

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// GoFast7683ABI is the ABI of the Go Fast ERC-7683 origin settler, restricted to the Open event
const GoFast7683ABI = `[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "orderId",
				"type": "bytes32"
			},
			{
				"components": [
					{"internalType": "address", "name": "user", "type": "address"},
					{"internalType": "uint256", "name": "originChainId", "type": "uint256"},
					{"internalType": "uint32", "name": "openDeadline", "type": "uint32"},
					{"internalType": "uint32", "name": "fillDeadline", "type": "uint32"},
					{
						"components": [
							{"internalType": "bytes32", "name": "token", "type": "bytes32"},
							{"internalType": "uint256", "name": "amount", "type": "uint256"},
							{"internalType": "bytes32", "name": "recipient", "type": "bytes32"},
							{"internalType": "uint256", "name": "chainId", "type": "uint256"}
						],
						"internalType": "struct Output[]",
						"name": "maxSpent",
						"type": "tuple[]"
					},
					{
						"components": [
							{"internalType": "bytes32", "name": "token", "type": "bytes32"},
							{"internalType": "uint256", "name": "amount", "type": "uint256"},
							{"internalType": "bytes32", "name": "recipient", "type": "bytes32"},
							{"internalType": "uint256", "name": "chainId", "type": "uint256"}
						],
						"internalType": "struct Output[]",
						"name": "minReceived",
						"type": "tuple[]"
					},
					{
						"components": [
							{"internalType": "uint64", "name": "destinationChainId", "type": "uint64"},
							{"internalType": "bytes32", "name": "destinationSettler", "type": "bytes32"},
							{"internalType": "bytes", "name": "originData", "type": "bytes"}
						],
						"internalType": "struct FillInstruction[]",
						"name": "fillInstructions",
						"type": "tuple[]"
					}
				],
				"indexed": false,
				"internalType": "struct ResolvedCrossChainOrder",
				"name": "resolvedOrder",
				"type": "tuple"
			}
		],
		"name": "Open",
		"type": "event"
	}
]`

// OpenEventName is the name of the order opening event
const OpenEventName = "Open"

// Output is an auto generated low-level Go binding around an user-defined struct.
type Output struct {
	Token     [32]byte
	Amount    *big.Int
	Recipient [32]byte
	ChainId   *big.Int
}

// FillInstruction is an auto generated low-level Go binding around an user-defined struct.
type FillInstruction struct {
	DestinationChainId uint64
	DestinationSettler [32]byte
	OriginData         []byte
}

// ResolvedCrossChainOrder is an auto generated low-level Go binding around an user-defined struct.
type ResolvedCrossChainOrder struct {
	User             common.Address
	OriginChainId    *big.Int
	OpenDeadline     uint32
	FillDeadline     uint32
	MaxSpent         []Output
	MinReceived      []Output
	FillInstructions []FillInstruction
}

var goFast7683ABI = mustParseABI(GoFast7683ABI)

// GoFast7683MetaABI returns the parsed settler ABI
func GoFast7683MetaABI() abi.ABI {
	return goFast7683ABI
}

// OpenEventID is the topic0 of the Open event
func OpenEventID() common.Hash {
	return goFast7683ABI.Events[OpenEventName].ID
}

// GoFast7683Filterer is an auto generated log filtering Go binding around the settler's events.
type GoFast7683Filterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// NewGoFast7683Filterer creates a new log filterer instance of GoFast7683, bound to a specific deployed contract.
func NewGoFast7683Filterer(address common.Address, filterer bind.ContractFilterer) (*GoFast7683Filterer, error) {
	return &GoFast7683Filterer{contract: bind.NewBoundContract(address, goFast7683ABI, nil, nil, filterer)}, nil
}

// GoFast7683OpenIterator is returned from FilterOpen and is used to iterate over the raw logs and unpacked data for Open events raised by the GoFast7683 contract.
type GoFast7683OpenIterator struct {
	Event *GoFast7683Open // Event containing the contract specifics and raw log

	contract *bind.BoundContract // Generic contract to use for unpacking event data
	event    string              // Event name to use for unpacking event data

	logs chan types.Log        // Log channel receiving the found contract events
	sub  ethereum.Subscription // Subscription for errors, completion and termination
	done bool                  // Whether the subscription completed delivering logs
	fail error                 // Occurred error to stop iteration
}

// Next advances the iterator to the subsequent event, returning whether there
// are any more events found. In case of a retrieval or parsing error, false is
// returned and Error() can be queried for the exact failure.
func (it *GoFast7683OpenIterator) Next() bool {
	if it.fail != nil {
		return false
	}
	if it.done {
		select {
		case log := <-it.logs:
			it.Event = new(GoFast7683Open)
			if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
				it.fail = err
				return false
			}
			it.Event.Raw = log
			return true

		default:
			return false
		}
	}
	select {
	case log := <-it.logs:
		it.Event = new(GoFast7683Open)
		if err := it.contract.UnpackLog(it.Event, it.event, log); err != nil {
			it.fail = err
			return false
		}
		it.Event.Raw = log
		return true

	case err := <-it.sub.Err():
		it.done = true
		it.fail = err
		return it.Next()
	}
}

// Error returns any retrieval or parsing error occurred during filtering.
func (it *GoFast7683OpenIterator) Error() error {
	return it.fail
}

// Close terminates the iteration process, releasing any pending underlying
// resources.
func (it *GoFast7683OpenIterator) Close() error {
	it.sub.Unsubscribe()
	return nil
}

// GoFast7683Open represents an Open event raised by the GoFast7683 contract.
type GoFast7683Open struct {
	OrderId       [32]byte
	ResolvedOrder ResolvedCrossChainOrder
	Raw           types.Log // Blockchain specific contextual infos
}

// FilterOpen is a free log retrieval operation binding the contract event Open.
//
// Solidity: event Open(bytes32 indexed orderId, ResolvedCrossChainOrder resolvedOrder)
func (_GoFast7683 *GoFast7683Filterer) FilterOpen(opts *bind.FilterOpts, orderId [][32]byte) (*GoFast7683OpenIterator, error) {
	var orderIdRule []interface{}
	for _, orderIdItem := range orderId {
		orderIdRule = append(orderIdRule, orderIdItem)
	}

	logs, sub, err := _GoFast7683.contract.FilterLogs(opts, OpenEventName, orderIdRule)
	if err != nil {
		return nil, err
	}
	return &GoFast7683OpenIterator{contract: _GoFast7683.contract, event: OpenEventName, logs: logs, sub: sub}, nil
}

// WatchOpen is a free log subscription operation binding the contract event Open.
//
// Solidity: event Open(bytes32 indexed orderId, ResolvedCrossChainOrder resolvedOrder)
func (_GoFast7683 *GoFast7683Filterer) WatchOpen(opts *bind.WatchOpts, sink chan<- *GoFast7683Open, orderId [][32]byte) (event.Subscription, error) {
	var orderIdRule []interface{}
	for _, orderIdItem := range orderId {
		orderIdRule = append(orderIdRule, orderIdItem)
	}

	logs, sub, err := _GoFast7683.contract.WatchLogs(opts, OpenEventName, orderIdRule)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				event := new(GoFast7683Open)
				if err := _GoFast7683.contract.UnpackLog(event, OpenEventName, log); err != nil {
					return err
				}
				event.Raw = log

				select {
				case sink <- event:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// ParseOpen is a log parse operation binding the contract event Open.
//
// Solidity: event Open(bytes32 indexed orderId, ResolvedCrossChainOrder resolvedOrder)
func (_GoFast7683 *GoFast7683Filterer) ParseOpen(log types.Log) (*GoFast7683Open, error) {
	if len(log.Topics) == 0 || log.Topics[0] != OpenEventID() {
		return nil, ErrEventSignatureMismatch
	}
	event := new(GoFast7683Open)
	if err := _GoFast7683.contract.UnpackLog(event, OpenEventName, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// PackOpenData ABI-encodes the non-indexed part of an Open event
func PackOpenData(order ResolvedCrossChainOrder) ([]byte, error) {
	return goFast7683ABI.Events[OpenEventName].Inputs.NonIndexed().Pack(order)
}

// ErrEventSignatureMismatch is returned when a log's topic0 is not the expected event
var ErrEventSignatureMismatch = errors.New("event signature mismatch")

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
