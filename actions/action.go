package actions

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

const (
	OperationCall         uint8 = 0
	OperationDelegateCall uint8 = 1

	// DefaultLeafPriority is the priority of leaf actions.
	DefaultLeafPriority uint32 = 0
	// DefaultMetaPriority is the priority of envelopes.
	DefaultMetaPriority uint32 = 1
)

var (
	ErrEmptyInner       = errors.New("envelope requires at least one inner action")
	ErrMixedSenders     = errors.New("inner actions do not share the same sender")
	ErrMissingMultisend = errors.New("multisend address required to batch more than one action")
)

// Action is a single contract call attributed to a sender.
type Action interface {
	Target() common.Address
	Value() *big.Int
	Data() []byte
	Priority() uint32
	Sender() SenderType
	Operation() uint8
	Describe() json.RawMessage
}

// MetaAction is an envelope around inner actions that all share a sender.
type MetaAction interface {
	Action
	Inner() []Action
}

// Sort orders actions by priority then sender, keeping the relative order of equal actions.
func Sort(actions []Action) {
	slices.SortStableFunc(actions, func(a, b Action) int {
		if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
			return c
		}

		return Compare(a.Sender(), b.Sender())
	})
}

// commonSender returns the sender shared by every action of inner.
func commonSender(inner []Action) (SenderType, error) {
	if len(inner) == 0 {
		return SenderType{}, ErrEmptyInner
	}
	sender := inner[0].Sender()
	for _, a := range inner[1:] {
		if a.Sender() != sender {
			return SenderType{}, fmt.Errorf("%w: %s != %s", ErrMixedSenders, sender, a.Sender())
		}
	}

	return sender, nil
}

func describeAll(inner []Action) []json.RawMessage {
	out := make([]json.RawMessage, len(inner))
	for i, a := range inner {
		out[i] = a.Describe()
	}

	return out
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// descriptions only hold marshalable primitives
		panic(err)
	}

	return b
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(v)
}
