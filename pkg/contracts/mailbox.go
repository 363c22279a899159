package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MailboxABI is the ABI of the Hyperlane mailbox, restricted to the ProcessId event
const MailboxABI = `[
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "bytes32",
				"name": "messageId",
				"type": "bytes32"
			}
		],
		"name": "ProcessId",
		"type": "event"
	}
]`

// ProcessIdEventName is the name of the message delivery event
const ProcessIdEventName = "ProcessId"

var mailboxABI = mustParseABI(MailboxABI)

// ProcessIdEventID is the topic0 of the ProcessId event
func ProcessIdEventID() common.Hash {
	return mailboxABI.Events[ProcessIdEventName].ID
}

// MailboxFilterer is an auto generated log filtering Go binding around the mailbox events.
type MailboxFilterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// NewMailboxFilterer creates a new log filterer instance of Mailbox, bound to a specific deployed contract.
func NewMailboxFilterer(address common.Address, filterer bind.ContractFilterer) (*MailboxFilterer, error) {
	return &MailboxFilterer{contract: bind.NewBoundContract(address, mailboxABI, nil, nil, filterer)}, nil
}

// MailboxProcessId represents a ProcessId event raised by the Mailbox contract.
type MailboxProcessId struct {
	MessageId [32]byte
	Raw       types.Log // Blockchain specific contextual infos
}

// ParseProcessId is a log parse operation binding the contract event ProcessId.
//
// Solidity: event ProcessId(bytes32 indexed messageId)
func (_Mailbox *MailboxFilterer) ParseProcessId(log types.Log) (*MailboxProcessId, error) {
	event := new(MailboxProcessId)
	if err := _Mailbox.contract.UnpackLog(event, ProcessIdEventName, log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
