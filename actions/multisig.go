package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

var (
	ErrAlreadyApproved = errors.New("already approved but not enough signers")
	ErrSignerNotOwner  = errors.New("signer is not an owner of the multisig")
)

// MultisigMode is how a signer interacts with the multisig.
type MultisigMode uint8

const (
	MultisigApproveHash MultisigMode = iota
	MultisigExecTransaction
)

func (m MultisigMode) String() string {
	if m == MultisigExecTransaction {
		return "execTransaction"
	}

	return "approveHash"
}

var _ MetaAction = (*MultisigTx)(nil)

// MultisigTx is a Safe transaction seen from one signer: either the signer approves the Safe
// transaction hash, or it has enough approvals to execute it.
type MultisigTx struct {
	multisig  common.Address
	signer    common.Address
	inner     Action
	nonce     *big.Int
	threshold uint64
	safeHash  common.Hash
	approvals []common.Address
	mode      MultisigMode
	data      []byte
}

// NewMultisig reads the state of the Safe at multisig through r and wraps inner for signer.
// When nonce is nil the Safe's current nonce is used.
//
// The transaction executes when the approvals, counting the signer's own call, meet the
// threshold. Otherwise the signer approves the hash. A signer that is not an owner fails
// with ErrSignerNotOwner instead of approving: the Safe would revert its approveHash.
func NewMultisig(ctx context.Context, r viewreader.Reader, multisig, signer common.Address, inner Action, nonce *big.Int) (*MultisigTx, error) {
	if inner == nil {
		return nil, ErrEmptyInner
	}
	if want := Signer(multisig); inner.Sender() != want {
		return nil, fmt.Errorf("%w: %s != %s", ErrMixedSenders, inner.Sender(), want)
	}

	owners, err := viewreader.CallOne[[]common.Address](ctx, r, contracts.SafeABI, multisig, "getOwners")
	if err != nil {
		return nil, err
	}
	threshold, err := viewreader.CallOne[*big.Int](ctx, r, contracts.SafeABI, multisig, "getThreshold")
	if err != nil {
		return nil, err
	}
	if !threshold.IsUint64() || threshold.Sign() == 0 {
		return nil, fmt.Errorf("invalid threshold %s on multisig %s", threshold, multisig)
	}
	if nonce == nil {
		nonce, err = viewreader.CallOne[*big.Int](ctx, r, contracts.SafeABI, multisig, "nonce")
		if err != nil {
			return nil, err
		}
	}

	zero := new(big.Int)
	safeHash, err := viewreader.CallOne[[32]byte](ctx, r, contracts.SafeABI, multisig, "getTransactionHash",
		inner.Target(), inner.Value(), inner.Data(), inner.Operation(),
		zero, zero, zero, common.Address{}, common.Address{}, nonce)
	if err != nil {
		return nil, err
	}

	var (
		approvals      []common.Address
		signerApproved bool
		signerIsOwner  bool
	)
	for _, owner := range owners {
		approved, err := viewreader.CallOne[*big.Int](ctx, r, contracts.SafeABI, multisig, "approvedHashes", owner, safeHash)
		if err != nil {
			return nil, err
		}
		if owner == signer {
			signerIsOwner = true
		}
		if approved.Sign() != 0 {
			approvals = append(approvals, owner)
			if owner == signer {
				signerApproved = true
			}
		}
	}

	m := &MultisigTx{
		multisig:  multisig,
		signer:    signer,
		inner:     inner,
		nonce:     new(big.Int).Set(nonce),
		threshold: threshold.Uint64(),
		safeHash:  safeHash,
		approvals: approvals,
	}

	approved := uint64(len(approvals))
	switch {
	case approved >= m.threshold:
		m.mode = MultisigExecTransaction
	case approved == m.threshold-1 && !signerApproved && signerIsOwner:
		// the signer's own call counts as the last approval
		approvals = append(approvals, signer)
		m.mode = MultisigExecTransaction
	case signerApproved:
		return nil, fmt.Errorf("%w: %d of %d on multisig %s", ErrAlreadyApproved, approved, m.threshold, multisig)
	case !signerIsOwner:
		return nil, fmt.Errorf("%w: %s on %s", ErrSignerNotOwner, signer, multisig)
	default:
		m.mode = MultisigApproveHash
	}

	if m.mode == MultisigExecTransaction {
		signatures := PrevalidatedSignatures(approvals, m.threshold)
		m.data, err = contracts.Pack(contracts.SafeABI, "execTransaction",
			inner.Target(), inner.Value(), inner.Data(), inner.Operation(),
			zero, zero, zero, common.Address{}, common.Address{}, signatures)
	} else {
		m.data, err = contracts.Pack(contracts.SafeABI, "approveHash", safeHash)
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

// PrevalidatedSignatures builds Safe signatures of type v=1 for the first threshold owners
// in ascending order: r = owner, s = 0, v = 1.
func PrevalidatedSignatures(owners []common.Address, threshold uint64) []byte {
	sorted := slices.Clone(owners)
	slices.SortFunc(sorted, func(a, b common.Address) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})
	sorted = slices.Compact(sorted)
	if uint64(len(sorted)) > threshold {
		sorted = sorted[:threshold]
	}

	sigs := make([]byte, 0, len(sorted)*65)
	for _, owner := range sorted {
		sigs = append(sigs, common.LeftPadBytes(owner.Bytes(), 32)...)
		sigs = append(sigs, make([]byte, 32)...)
		sigs = append(sigs, 0x01)
	}

	return sigs
}

// Mode returns whether the signer approves or executes.
func (m *MultisigTx) Mode() MultisigMode { return m.mode }

// SafeTxHash returns the Safe transaction hash of the inner action.
func (m *MultisigTx) SafeTxHash() common.Hash { return m.safeHash }

// Nonce returns the Safe nonce the transaction was hashed with.
func (m *MultisigTx) Nonce() *big.Int { return new(big.Int).Set(m.nonce) }

// Multisig returns the address of the Safe.
func (m *MultisigTx) Multisig() common.Address { return m.multisig }

func (m *MultisigTx) Target() common.Address { return m.multisig }
func (m *MultisigTx) Value() *big.Int        { return new(big.Int) }
func (m *MultisigTx) Data() []byte           { return common.CopyBytes(m.data) }
func (m *MultisigTx) Priority() uint32       { return DefaultMetaPriority }
func (m *MultisigTx) Sender() SenderType     { return EOA(m.signer) }
func (m *MultisigTx) Operation() uint8       { return OperationCall }
func (m *MultisigTx) Inner() []Action        { return []Action{m.inner} }

func (m *MultisigTx) Describe() json.RawMessage {
	return mustJSON(struct {
		Type      string           `json:"type"`
		Mode      string           `json:"mode"`
		Multisig  common.Address   `json:"multisig"`
		Signer    common.Address   `json:"signer"`
		Nonce     string           `json:"nonce"`
		Threshold uint64           `json:"threshold"`
		Approvals []common.Address `json:"approvals"`
		SafeHash  common.Hash      `json:"safe_tx_hash"`
		Data      hexutil.Bytes    `json:"data"`
		Inner     json.RawMessage  `json:"inner"`
	}{
		Type:      "multisig",
		Mode:      m.mode.String(),
		Multisig:  m.multisig,
		Signer:    m.signer,
		Nonce:     m.nonce.String(),
		Threshold: m.threshold,
		Approvals: m.approvals,
		SafeHash:  m.safeHash,
		Data:      m.data,
		Inner:     m.inner.Describe(),
	})
}
