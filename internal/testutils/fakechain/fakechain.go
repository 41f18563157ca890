// Package fakechain provides an in-memory ContractReader that answers eth_calls from
// registered handlers. It records every remote call, including the block it was observed at.
package fakechain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrExecutionReverted = errors.New("execution reverted")

// Handler computes the return values of a call from its decoded arguments.
type Handler func(args []any) ([]any, error)

// RecordedCall is a remote call observed by the Chain.
type RecordedCall struct {
	Kind   string
	Target common.Address
	Method string
	Block  *big.Int
}

// Chain is a fake remote endpoint.
type Chain struct {
	mu        sync.Mutex
	block     uint64
	contracts map[common.Address]*Contract
	calls     []RecordedCall
	failures  []error
}

// New returns an empty chain whose tip is block.
func New(block uint64) *Chain {
	return &Chain{
		block:     block,
		contracts: make(map[common.Address]*Contract),
	}
}

// Contract is a fake deployed contract.
type Contract struct {
	chain    *Chain
	addr     common.Address
	abis     []*abi.ABI
	handlers map[string]Handler
	storage  map[common.Hash]common.Hash
	code     []byte
}

// Deploy registers a contract at addr answering methods of the given ABIs.
func (c *Chain) Deploy(addr common.Address, abis ...*abi.ABI) *Contract {
	c.mu.Lock()
	defer c.mu.Unlock()

	ct := &Contract{
		chain:    c,
		addr:     addr,
		abis:     abis,
		handlers: make(map[string]Handler),
		storage:  make(map[common.Hash]common.Hash),
		code:     []byte{0x60, 0x80, 0x60, 0x40},
	}
	c.contracts[addr] = ct

	return ct
}

// On registers h for method.
func (ct *Contract) On(method string, h Handler) *Contract {
	ct.chain.mu.Lock()
	defer ct.chain.mu.Unlock()

	ct.handlers[method] = h

	return ct
}

// Returns registers constant return values for method.
func (ct *Contract) Returns(method string, values ...any) *Contract {
	return ct.On(method, func([]any) ([]any, error) { return values, nil })
}

// Reverts makes method revert.
func (ct *Contract) Reverts(method string) *Contract {
	return ct.On(method, func([]any) ([]any, error) { return nil, ErrExecutionReverted })
}

// SetStorage sets a storage word.
func (ct *Contract) SetStorage(slot, value common.Hash) *Contract {
	ct.chain.mu.Lock()
	defer ct.chain.mu.Unlock()

	ct.storage[slot] = value

	return ct
}

// FailNext makes the next len(errs) remote calls fail with the given errors, in order.
func (c *Chain) FailNext(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = append(c.failures, errs...)
}

// Calls returns a copy of every recorded call.
func (c *Chain) Calls() []RecordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RecordedCall, len(c.calls))
	copy(out, c.calls)

	return out
}

// CallCount returns how many times method was called on target.
func (c *Chain) CallCount(target common.Address, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, call := range c.calls {
		if call.Target == target && call.Method == method {
			n++
		}
	}

	return n
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.block, nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("contract creation not supported")
	}

	c.mu.Lock()
	ct, ok := c.contracts[*msg.To]
	method, args, decodeErr := ct.decode(msg.Data)
	c.calls = append(c.calls, RecordedCall{Kind: "call", Target: *msg.To, Method: method.String(), Block: copyBig(blockNumber)})
	if err := c.popFailure(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	var h Handler
	if ok && decodeErr == nil {
		h = ct.handlers[method.Name]
	}
	c.mu.Unlock()

	if !ok {
		// calling an address without code returns empty data
		return nil, nil
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if h == nil {
		return nil, fmt.Errorf("%w: no handler for %s", ErrExecutionReverted, method.Name)
	}

	out, err := h(args)
	if err != nil {
		return nil, err
	}

	return method.Outputs.Pack(out...)
}

func (c *Chain) StorageAt(_ context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, RecordedCall{Kind: "storage", Target: account, Block: copyBig(blockNumber)})
	if err := c.popFailure(); err != nil {
		return nil, err
	}

	ct, ok := c.contracts[account]
	if !ok {
		return make([]byte, 32), nil
	}
	word := ct.storage[key]

	return word.Bytes(), nil
}

func (c *Chain) CodeAt(_ context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, RecordedCall{Kind: "code", Target: account, Block: copyBig(blockNumber)})
	if err := c.popFailure(); err != nil {
		return nil, err
	}

	ct, ok := c.contracts[account]
	if !ok {
		return nil, nil
	}

	return common.CopyBytes(ct.code), nil
}

// decode must be called with the chain lock held. A nil contract yields an empty method name.
func (ct *Contract) decode(data []byte) (methodRef, []any, error) {
	if ct == nil {
		return methodRef{}, nil, nil
	}
	if len(data) < 4 {
		return methodRef{}, nil, fmt.Errorf("%w: short calldata", ErrExecutionReverted)
	}
	for _, a := range ct.abis {
		m, err := a.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return methodRef{Method: m}, nil, err
		}

		return methodRef{Method: m}, args, nil
	}

	return methodRef{}, nil, fmt.Errorf("%w: unknown selector %x", ErrExecutionReverted, data[:4])
}

func (c *Chain) popFailure() error {
	if len(c.failures) == 0 {
		return nil
	}
	err := c.failures[0]
	c.failures = c.failures[1:]

	return err
}

func copyBig(b *big.Int) *big.Int {
	if b == nil {
		return nil
	}

	return new(big.Int).Set(b)
}

type methodRef struct {
	*abi.Method
}

func (m methodRef) String() string {
	if m.Method == nil {
		return ""
	}

	return m.Name
}
