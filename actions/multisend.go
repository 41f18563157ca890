package actions

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

var _ MetaAction = (*Multisend)(nil)

// Multisend batches actions of a multisig into one call. A single inner action is passed
// through as a direct call, more are packed into a multiSend delegatecall.
type Multisend struct {
	multisig  common.Address
	multisend common.Address
	inner     []Action
	data      []byte
}

// NewMultisend wraps inner, all sent by the same multisig. multisend may be nil when inner
// holds a single action.
func NewMultisend(multisig common.Address, multisend *common.Address, inner []Action) (*Multisend, error) {
	if _, err := commonSender(inner); err != nil {
		return nil, err
	}

	m := &Multisend{multisig: multisig, inner: inner}
	if len(inner) == 1 {
		m.data = inner[0].Data()
		return m, nil
	}
	if multisend == nil {
		return nil, ErrMissingMultisend
	}
	m.multisend = *multisend

	txs := make([]contracts.MultiSendTx, len(inner))
	for i, a := range inner {
		txs[i] = contracts.MultiSendTx{
			Operation: OperationCall,
			To:        a.Target(),
			Value:     a.Value(),
			Data:      a.Data(),
		}
	}
	data, err := contracts.Pack(contracts.MultiSendABI, "multiSend", contracts.PackMultiSend(txs))
	if err != nil {
		return nil, err
	}
	m.data = data

	return m, nil
}

func (m *Multisend) single() bool { return len(m.inner) == 1 }

func (m *Multisend) Target() common.Address {
	if m.single() {
		return m.inner[0].Target()
	}

	return m.multisend
}

func (m *Multisend) Value() *big.Int {
	if m.single() {
		return m.inner[0].Value()
	}

	return new(big.Int)
}

func (m *Multisend) Data() []byte { return common.CopyBytes(m.data) }

func (m *Multisend) Priority() uint32 { return DefaultMetaPriority }

func (m *Multisend) Sender() SenderType { return Signer(m.multisig) }

func (m *Multisend) Operation() uint8 {
	if m.single() {
		return m.inner[0].Operation()
	}

	return OperationDelegateCall
}

func (m *Multisend) Inner() []Action { return m.inner }

func (m *Multisend) Describe() json.RawMessage {
	return mustJSON(struct {
		Type      string            `json:"type"`
		Multisig  common.Address    `json:"multisig"`
		Target    common.Address    `json:"target"`
		Operation uint8             `json:"operation"`
		Data      hexutil.Bytes     `json:"data"`
		Inner     []json.RawMessage `json:"inner"`
	}{
		Type:      "multisend",
		Multisig:  m.multisig,
		Target:    m.Target(),
		Operation: m.Operation(),
		Data:      m.data,
		Inner:     describeAll(m.inner),
	})
}
