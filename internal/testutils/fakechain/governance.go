package fakechain

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

// Safe is a fake Gnosis Safe with per owner hash approvals.
type Safe struct {
	*Contract

	mu        sync.Mutex
	owners    []common.Address
	threshold int64
	nonce     int64
	approved  map[common.Address]map[common.Hash]bool
}

// DeploySafe deploys a Safe answering getOwners, getThreshold, nonce, getTransactionHash and
// approvedHashes.
func (c *Chain) DeploySafe(addr common.Address, owners []common.Address, threshold, nonce int64) *Safe {
	s := &Safe{
		Contract:  c.Deploy(addr, contracts.SafeABI),
		owners:    owners,
		threshold: threshold,
		nonce:     nonce,
		approved:  make(map[common.Address]map[common.Hash]bool),
	}

	s.On("getOwners", func([]any) ([]any, error) {
		return []any{s.owners}, nil
	})
	s.On("getThreshold", func([]any) ([]any, error) {
		return []any{big.NewInt(s.threshold)}, nil
	})
	s.On("nonce", func([]any) ([]any, error) {
		return []any{big.NewInt(s.nonce)}, nil
	})
	s.On("getTransactionHash", func(args []any) ([]any, error) {
		h, err := hashArgs(contracts.SafeABI, "getTransactionHash", args)
		return []any{h}, err
	})
	s.On("approvedHashes", func(args []any) ([]any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		owner := args[0].(common.Address)
		hash := common.Hash(args[1].([32]byte))
		if s.approved[owner][hash] {
			return []any{big.NewInt(1)}, nil
		}

		return []any{big.NewInt(0)}, nil
	})

	return s
}

// Approve records an approval of hash by owner.
func (s *Safe) Approve(owner common.Address, hash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.approved[owner] == nil {
		s.approved[owner] = make(map[common.Hash]bool)
	}
	s.approved[owner][hash] = true
}

// TransactionHash computes the hash the fake returns for getTransactionHash with zero gas
// parameters.
func (s *Safe) TransactionHash(to common.Address, value *big.Int, data []byte, operation uint8, nonce *big.Int) common.Hash {
	zero := new(big.Int)
	h, err := hashArgs(contracts.SafeABI, "getTransactionHash",
		[]any{to, value, data, operation, zero, zero, zero, common.Address{}, common.Address{}, nonce})
	if err != nil {
		panic(err)
	}

	return h
}

// Timelock is a fake TimelockController.
type Timelock struct {
	*Contract

	mu       sync.Mutex
	minDelay int64
	ready    map[common.Hash]bool
	pending  map[common.Hash]bool
}

// DeployTimelock deploys a timelock answering getMinDelay, hashOperationBatch,
// isOperationReady and isOperationPending.
func (c *Chain) DeployTimelock(addr common.Address, minDelay int64) *Timelock {
	tl := &Timelock{
		Contract: c.Deploy(addr, contracts.TimelockABI),
		minDelay: minDelay,
		ready:    make(map[common.Hash]bool),
		pending:  make(map[common.Hash]bool),
	}

	tl.On("getMinDelay", func([]any) ([]any, error) {
		return []any{big.NewInt(tl.minDelay)}, nil
	})
	tl.On("hashOperationBatch", func(args []any) ([]any, error) {
		h, err := hashArgs(contracts.TimelockABI, "hashOperationBatch", args)
		return []any{h}, err
	})
	tl.On("isOperationReady", func(args []any) ([]any, error) {
		tl.mu.Lock()
		defer tl.mu.Unlock()

		return []any{tl.ready[common.Hash(args[0].([32]byte))]}, nil
	})
	tl.On("isOperationPending", func(args []any) ([]any, error) {
		tl.mu.Lock()
		defer tl.mu.Unlock()

		id := common.Hash(args[0].([32]byte))

		return []any{tl.pending[id] || tl.ready[id]}, nil
	})

	return tl
}

// OperationID computes the id the fake returns for hashOperationBatch with zero predecessor
// and salt.
func (tl *Timelock) OperationID(targets []common.Address, values []*big.Int, payloads [][]byte) common.Hash {
	h, err := hashArgs(contracts.TimelockABI, "hashOperationBatch",
		[]any{targets, values, payloads, [32]byte{}, [32]byte{}})
	if err != nil {
		panic(err)
	}

	return h
}

// SetReady marks an operation as ready for execution.
func (tl *Timelock) SetReady(id common.Hash) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.ready[id] = true
}

// SetPending marks an operation as scheduled but not yet ready.
func (tl *Timelock) SetPending(id common.Hash) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.pending[id] = true
}

func hashArgs(a *abi.ABI, method string, args []any) ([32]byte, error) {
	packed, err := a.Methods[method].Inputs.Pack(args...)
	if err != nil {
		return [32]byte{}, err
	}

	return crypto.Keccak256Hash(packed), nil
}
