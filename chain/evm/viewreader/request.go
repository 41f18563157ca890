package viewreader

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ContractReader is the remote view endpoint. *ethclient.Client satisfies it.
type ContractReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Reader is the read surface consumed by building blocks, processors and envelopes.
// *Manager is the production implementation.
type Reader interface {
	Request(ctx context.Context, target common.Address, calldata []byte) ([]byte, error)
	RequestStorage(ctx context.Context, target common.Address, slot common.Hash) (*uint256.Int, error)
	CodeLength(ctx context.Context, target common.Address) (int, error)
}

// Kind selects the remote method a Request maps to.
type Kind uint8

const (
	KindCall Kind = iota
	KindStorage
	KindCode
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindStorage:
		return "storage"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Request identifies a single view read. Calldata is only set for KindCall, Slot only for
// KindStorage.
type Request struct {
	Kind     Kind
	Target   common.Address
	Calldata []byte
	Slot     common.Hash
}

// Key returns a string that is equal for two requests iff all their fields are equal.
func (r Request) Key() string {
	var sb strings.Builder
	sb.WriteString(r.Kind.String())
	sb.WriteByte('|')
	sb.WriteString(r.Target.Hex())
	sb.WriteByte('|')
	switch r.Kind {
	case KindCall:
		sb.WriteString(hex.EncodeToString(r.Calldata))
	case KindStorage:
		sb.WriteString(r.Slot.Hex())
	case KindCode:
	}

	return sb.String()
}

type result struct {
	data []byte
	err  error
}

type job struct {
	ctx  context.Context
	req  Request
	resp chan result
}
