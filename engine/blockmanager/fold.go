package blockmanager

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks"
)

// MaxFoldIterations is the height of the envelope lattice:
// Timelock, Multisig, Signer, EOA.
const MaxFoldIterations = 3

var ErrFoldFailure = errors.New("fold failure")

// Fold wraps actions into envelopes until every top level action is sent by the executor.
// acts must be sorted.
func (m *Manager) Fold(ctx context.Context, acts []actions.Action) ([]actions.Action, error) {
	for i := range m.foldIterations {
		next, err := m.foldOnce(ctx, acts)
		if err != nil {
			return nil, fmt.Errorf("%w: iteration %d: %w", ErrFoldFailure, i+1, err)
		}
		acts = next

		if !hasNonEOA(acts) {
			m.lggr.Debugw("Folded actions", "iterations", i+1, "transactions", len(acts))
			return acts, nil
		}
	}

	// Every envelope is sent one level lower than its inner actions, so the lattice height
	// bounds the passes.
	return nil, fmt.Errorf("%w: senders did not collapse within %d iterations", ErrFoldFailure, m.foldIterations)
}

func (m *Manager) foldOnce(ctx context.Context, acts []actions.Action) ([]actions.Action, error) {
	var (
		next  []actions.Action
		chunk []actions.Action
	)
	for i, a := range acts {
		sender := a.Sender()
		switch sender.Kind {
		case actions.SenderEOA:
			if sender.Address != m.executor {
				return nil, fmt.Errorf("action sent by %s, executor is %s", sender, m.executor)
			}
			next = append(next, a)

		case actions.SenderSigner:
			env, err := m.wrapSigner(ctx, sender.Address, a)
			if err != nil {
				return nil, err
			}
			next = append(next, env)

		case actions.SenderMultisig, actions.SenderTimelock:
			chunk = append(chunk, a)
			if i+1 < len(acts) && acts[i+1].Sender() == sender {
				continue
			}
			env, err := m.wrapChunk(ctx, sender, chunk)
			if err != nil {
				return nil, err
			}
			next = append(next, env)
			chunk = nil

		default:
			return nil, fmt.Errorf("unknown sender %s", sender)
		}
	}

	return next, nil
}

func (m *Manager) wrapChunk(ctx context.Context, sender actions.SenderType, chunk []actions.Action) (actions.Action, error) {
	if sender.Kind == actions.SenderMultisig {
		var multisend *common.Address
		if addr, ok := m.cache.GetAddress(blocks.KeyMultisend); ok {
			multisend = &addr
		}

		return actions.NewMultisend(sender.Address, multisend, chunk)
	}

	admin, ok := m.cache.GetAddress(blocks.KeyTimelockAdmin)
	if !ok {
		return nil, &blocks.MissingValuesError{Block: "fold", Keys: []string{blocks.KeyTimelockAdmin}}
	}
	tl, err := actions.NewTimelock(ctx, m.reader, chunk, m.timelockDelay, actions.Multisig(admin))
	if err != nil {
		return nil, err
	}
	m.lggr.Infow("Wrapped timelock batch", "timelock", sender.Address, "mode", tl.Mode(), "operation_id", tl.OperationID())

	return tl, nil
}

// wrapSigner wraps a into a Safe transaction of multisig. Consecutive transactions of the
// same Safe take consecutive nonces.
func (m *Manager) wrapSigner(ctx context.Context, multisig common.Address, a actions.Action) (actions.Action, error) {
	env, err := actions.NewMultisig(ctx, m.reader, multisig, m.executor, a, m.nonces[multisig])
	if err != nil {
		return nil, err
	}
	m.nonces[multisig] = new(big.Int).Add(env.Nonce(), big.NewInt(1))
	m.lggr.Infow("Wrapped multisig transaction", "multisig", multisig, "mode", env.Mode(), "nonce", env.Nonce(), "safe_tx_hash", env.SafeTxHash())

	return env, nil
}

func hasNonEOA(acts []actions.Action) bool {
	for _, a := range acts {
		if a.Sender().Kind != actions.SenderEOA {
			return true
		}
	}

	return false
}
