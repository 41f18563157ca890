package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

var (
	ErrInvalidTimelockAdmin = errors.New("timelock admin must be an EOA or a multisig")
	ErrDelayBelowMinimum    = errors.New("delay is below the timelock minimum delay")
	ErrOperationPending     = errors.New("timelock operation is pending")
)

// TimelockMode is whether a batch is scheduled or executed.
type TimelockMode uint8

const (
	TimelockPropose TimelockMode = iota
	TimelockExecute
)

func (m TimelockMode) String() string {
	if m == TimelockExecute {
		return "executeBatch"
	}

	return "scheduleBatch"
}

var _ MetaAction = (*TimelockBatch)(nil)

// TimelockBatch schedules a batch of timelock actions, or executes it once it is ready.
type TimelockBatch struct {
	timelock    common.Address
	admin       SenderType
	inner       []Action
	delay       *big.Int
	operationID common.Hash
	mode        TimelockMode
	data        []byte
}

// NewTimelock wraps inner, all sent by the same timelock, for admin. A nil delay uses the
// timelock's minimum delay.
func NewTimelock(ctx context.Context, r viewreader.Reader, inner []Action, delay *big.Int, admin SenderType) (*TimelockBatch, error) {
	sender, err := commonSender(inner)
	if err != nil {
		return nil, err
	}
	if sender.Kind != SenderTimelock {
		return nil, fmt.Errorf("%w: timelock batch with sender %s", ErrMixedSenders, sender)
	}
	if admin.Kind != SenderEOA && admin.Kind != SenderMultisig {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTimelockAdmin, admin)
	}
	timelock := sender.Address

	minDelay, err := viewreader.CallOne[*big.Int](ctx, r, contracts.TimelockABI, timelock, "getMinDelay")
	if err != nil {
		return nil, err
	}
	switch {
	case delay == nil:
		delay = minDelay
	case delay.Cmp(minDelay) < 0:
		return nil, fmt.Errorf("%w: %s < %s", ErrDelayBelowMinimum, delay, minDelay)
	}

	targets := make([]common.Address, len(inner))
	values := make([]*big.Int, len(inner))
	payloads := make([][]byte, len(inner))
	for i, a := range inner {
		targets[i] = a.Target()
		values[i] = a.Value()
		payloads[i] = a.Data()
	}
	var predecessor, salt [32]byte

	id, err := viewreader.CallOne[[32]byte](ctx, r, contracts.TimelockABI, timelock, "hashOperationBatch",
		targets, values, payloads, predecessor, salt)
	if err != nil {
		return nil, err
	}

	ready, err := viewreader.CallOne[bool](ctx, r, contracts.TimelockABI, timelock, "isOperationReady", id)
	if err != nil {
		return nil, err
	}

	t := &TimelockBatch{
		timelock:    timelock,
		admin:       admin,
		inner:       inner,
		delay:       new(big.Int).Set(delay),
		operationID: id,
	}

	if ready {
		t.mode = TimelockExecute
		t.data, err = contracts.Pack(contracts.TimelockABI, "executeBatch", targets, values, payloads, predecessor, salt)
	} else {
		pending, perr := viewreader.CallOne[bool](ctx, r, contracts.TimelockABI, timelock, "isOperationPending", id)
		if perr != nil {
			return nil, perr
		}
		if pending {
			return nil, fmt.Errorf("%w: %s on %s", ErrOperationPending, common.Hash(id), timelock)
		}
		t.mode = TimelockPropose
		t.data, err = contracts.Pack(contracts.TimelockABI, "scheduleBatch", targets, values, payloads, predecessor, salt, t.delay)
	}
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Mode returns whether the batch is proposed or executed.
func (t *TimelockBatch) Mode() TimelockMode { return t.mode }

// OperationID returns the timelock operation id of the batch.
func (t *TimelockBatch) OperationID() common.Hash { return t.operationID }

// Delay returns the effective delay.
func (t *TimelockBatch) Delay() *big.Int { return new(big.Int).Set(t.delay) }

func (t *TimelockBatch) Target() common.Address { return t.timelock }
func (t *TimelockBatch) Value() *big.Int        { return new(big.Int) }
func (t *TimelockBatch) Data() []byte           { return common.CopyBytes(t.data) }
func (t *TimelockBatch) Priority() uint32       { return DefaultMetaPriority }
func (t *TimelockBatch) Sender() SenderType     { return t.admin }
func (t *TimelockBatch) Operation() uint8       { return OperationCall }
func (t *TimelockBatch) Inner() []Action        { return t.inner }

func (t *TimelockBatch) Describe() json.RawMessage {
	return mustJSON(struct {
		Type        string            `json:"type"`
		Mode        string            `json:"mode"`
		Timelock    common.Address    `json:"timelock"`
		Admin       SenderType        `json:"admin"`
		Delay       string            `json:"delay"`
		OperationID common.Hash       `json:"operation_id"`
		Data        hexutil.Bytes     `json:"data"`
		Inner       []json.RawMessage `json:"inner"`
	}{
		Type:        "timelock",
		Mode:        t.mode.String(),
		Timelock:    t.timelock,
		Admin:       t.admin,
		Delay:       t.delay.String(),
		OperationID: t.operationID,
		Data:        t.data,
		Inner:       describeAll(t.inner),
	})
}
