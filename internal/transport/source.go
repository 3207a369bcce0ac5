// Package transport connects compiled programs to the chain.
//
// The core never touches the network. AccountSource is the one collaborator
// contract it relies on: raw account bytes in, decoded values out. Built
// instructions leave as solana.Instruction values for the caller to sign
// and submit.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/roach88/anchorgo/internal/logging"
)

// ErrAccountNotFound reports an address with no account data.
var ErrAccountNotFound = errors.New("account not found")

// AccountSource supplies raw account data.
type AccountSource interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// FetchResult classifies one account read.
type FetchResult string

const (
	FetchOK       FetchResult = "ok"
	FetchNotFound FetchResult = "not_found"
	FetchError    FetchResult = "error"
)

// Observer receives one event per RPC account read.
type Observer interface {
	Fetch(result FetchResult, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) Fetch(FetchResult, time.Duration) {}

// RPCSource reads accounts through a Solana JSON-RPC endpoint.
type RPCSource struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	log        logging.Logger
	obs        Observer
}

// Option configures an RPCSource.
type Option func(*RPCSource)

// WithCommitment sets the commitment used for reads.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(s *RPCSource) { s.commitment = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *RPCSource) { s.log = l }
}

// WithObserver reports every read to obs.
func WithObserver(obs Observer) Option {
	return func(s *RPCSource) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// NewRPCSource creates a source for endpoint.
func NewRPCSource(endpoint string, opts ...Option) *RPCSource {
	return NewRPCSourceWithClient(rpc.New(endpoint), opts...)
}

// NewRPCSourceWithClient wraps an existing RPC client.
func NewRPCSourceWithClient(client *rpc.Client, opts ...Option) *RPCSource {
	s := &RPCSource{
		client:     client,
		commitment: rpc.CommitmentConfirmed,
		log:        logging.Discard(),
		obs:        nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commitment returns the configured commitment.
func (s *RPCSource) Commitment() rpc.CommitmentType { return s.commitment }

// AccountData fetches the data of one account.
func (s *RPCSource) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	start := time.Now()
	resp, err := s.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{Commitment: s.commitment})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (resp == nil || resp.Value == nil)) {
		s.obs.Fetch(FetchNotFound, time.Since(start))
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	if err != nil {
		s.obs.Fetch(FetchError, time.Since(start))
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	s.obs.Fetch(FetchOK, time.Since(start))
	data := resp.Value.Data.GetBinary()
	s.log.WithFields(logging.Fields{
		"address": address.String(),
		"bytes":   len(data),
		"owner":   resp.Value.Owner.String(),
	}).Debug("fetched account")
	return data, nil
}

// ParseCommitment maps a commitment name to its RPC value.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch strings.ToLower(s) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	}
	return "", fmt.Errorf("unknown commitment %q (valid: processed, confirmed, finalized)", s)
}

// MapSource serves accounts from memory. It is safe for concurrent use.
type MapSource struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey][]byte
}

// NewMapSource creates an empty MapSource.
func NewMapSource() *MapSource {
	return &MapSource{accounts: make(map[solana.PublicKey][]byte)}
}

// Set stores a copy of data under address.
func (m *MapSource) Set(address solana.PublicKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[address] = append([]byte(nil), data...)
}

// AccountData returns a copy of the stored data.
func (m *MapSource) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	return append([]byte(nil), data...), nil
}
