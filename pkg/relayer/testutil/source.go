package testutil

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

// FakeSource is an in-memory source chain serving logs by block range and subscription
type FakeSource struct {
	mu   sync.Mutex
	head uint64
	logs []types.Log

	// SubscriptionsEnabled makes SubscribeFilterLogs succeed; otherwise it reports
	// notifications as unsupported, like an HTTP endpoint
	SubscriptionsEnabled bool
	// FilterErr fails every FilterLogs call when set
	FilterErr error

	feed    event.Feed
	Queries []ethereum.FilterQuery
}

// NewFakeSource creates a source whose head is at block head
func NewFakeSource(head uint64) *FakeSource {
	return &FakeSource{head: head}
}

// AddLogs stores logs for range queries without notifying subscribers
func (s *FakeSource) AddLogs(logs ...types.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, logs...)
}

// Emit stores a log, moves the head to its block and pushes it to subscribers
func (s *FakeSource) Emit(log types.Log) {
	s.mu.Lock()
	s.logs = append(s.logs, log)
	if log.BlockNumber > s.head {
		s.head = log.BlockNumber
	}
	s.mu.Unlock()
	s.feed.Send(log)
}

// SetHead moves the head
func (s *FakeSource) SetHead(head uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
}

// SetFilterErr makes FilterLogs fail with err until cleared with nil
func (s *FakeSource) SetFilterErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilterErr = err
}

// QueryCount returns the number of FilterLogs calls
func (s *FakeSource) QueryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Queries)
}

// BlockNumber returns the head
func (s *FakeSource) BlockNumber(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

// FilterLogs returns stored logs matching q, in insertion order
func (s *FakeSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries = append(s.Queries, q)
	if s.FilterErr != nil {
		return nil, s.FilterErr
	}

	var out []types.Log
	for _, log := range s.logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if matches(q, log) {
			out = append(out, log)
		}
	}
	return out, nil
}

// SubscribeFilterLogs forwards emitted logs matching q to ch
func (s *FakeSource) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if !s.SubscriptionsEnabled {
		return nil, rpc.ErrNotificationsUnsupported
	}

	feed := make(chan types.Log, 16)
	inner := s.feed.Subscribe(feed)
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer inner.Unsubscribe()
		for {
			select {
			case log := <-feed:
				if !matches(q, log) {
					continue
				}
				select {
				case ch <- log:
				case <-quit:
					return nil
				}
			case err := <-inner.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func matches(q ethereum.FilterQuery, log types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		if !containsHash(alternatives, log.Topics[i]) {
			return false
		}
	}
	return true
}

func containsHash(hashes []common.Hash, h common.Hash) bool {
	for _, candidate := range hashes {
		if candidate == h {
			return true
		}
	}
	return false
}
