package actions

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

var _ MetaAction = (*Bundler)(nil)

// Bundler packs actions of one executor into a single bundleTxs call so they land
// atomically.
type Bundler struct {
	bundler common.Address
	sender  SenderType
	inner   []Action
	data    []byte
}

type bundledTx struct {
	Target common.Address
	Data   []byte
	Value  *big.Int
}

// NewBundler wraps inner, all sent by the same EOA, into a call to the bundler contract.
func NewBundler(bundler common.Address, inner []Action) (*Bundler, error) {
	sender, err := commonSender(inner)
	if err != nil {
		return nil, err
	}
	if sender.Kind != SenderEOA {
		return nil, fmt.Errorf("%w: bundler requires EOA sender, got %s", ErrMixedSenders, sender)
	}

	txs := make([]bundledTx, len(inner))
	for i, a := range inner {
		txs[i] = bundledTx{Target: a.Target(), Data: a.Data(), Value: a.Value()}
	}
	data, err := contracts.Pack(contracts.BundlerABI, "bundleTxs", txs)
	if err != nil {
		return nil, err
	}

	return &Bundler{bundler: bundler, sender: sender, inner: inner, data: data}, nil
}

func (b *Bundler) Target() common.Address { return b.bundler }

func (b *Bundler) Value() *big.Int {
	total := new(big.Int)
	for _, a := range b.inner {
		total.Add(total, a.Value())
	}

	return total
}

func (b *Bundler) Data() []byte       { return common.CopyBytes(b.data) }
func (b *Bundler) Priority() uint32   { return DefaultMetaPriority }
func (b *Bundler) Sender() SenderType { return b.sender }
func (b *Bundler) Operation() uint8   { return OperationDelegateCall }
func (b *Bundler) Inner() []Action    { return b.inner }

func (b *Bundler) Describe() json.RawMessage {
	return mustJSON(struct {
		Type    string            `json:"type"`
		Bundler common.Address    `json:"bundler"`
		Sender  SenderType        `json:"sender"`
		Data    hexutil.Bytes     `json:"data"`
		Inner   []json.RawMessage `json:"inner"`
	}{
		Type:    "bundler",
		Bundler: b.bundler,
		Sender:  b.sender,
		Data:    b.data,
		Inner:   describeAll(b.inner),
	})
}
