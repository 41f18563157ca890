// Package blockmanager drives a run: it loads the building blocks, propagates their facts
// into the shared cache, assembles the leaf actions and folds them into transactions the
// executor can send.
package blockmanager

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

// origin of the facts the manager seeds the cache with
const seedOrigin = "manager"

// Manager owns the cache of a run and reads the chain through a view reader.
type Manager struct {
	lggr     logger.Logger
	cache    *cache.Cache
	reader   viewreader.Reader
	executor common.Address

	seeds          map[string]cache.Value
	timelockDelay  *big.Int
	foldIterations int
	nonces         map[common.Address]*big.Int
	blocks         []blocks.Block
}

// Option configures a Manager.
type Option func(*Manager)

// WithNetworkID seeds the network id of the run.
func WithNetworkID(id uint32) Option {
	return func(m *Manager) {
		m.seeds[blocks.KeyNetworkID] = cache.U32(id)
	}
}

// WithMultisend seeds the MultiSend contract used to batch multisig calls.
func WithMultisend(addr common.Address) Option {
	return func(m *Manager) {
		m.seeds[blocks.KeyMultisend] = cache.Address(addr)
	}
}

// WithBundler seeds the bundler contract. When set, the folded transactions of the
// executor are bundled into one.
func WithBundler(addr common.Address) Option {
	return func(m *Manager) {
		m.seeds[blocks.KeyBundler] = cache.Address(addr)
	}
}

// WithTimelockDelay sets the delay of proposed timelock batches. The timelock minimum
// delay is used by default.
func WithTimelockDelay(d *big.Int) Option {
	return func(m *Manager) {
		m.timelockDelay = d
	}
}

// WithMultisigNonce sets the Safe nonce of the first multisig transaction of multisig.
// The on-chain nonce is used by default.
func WithMultisigNonce(multisig common.Address, nonce *big.Int) Option {
	return func(m *Manager) {
		m.nonces[multisig] = nonce
	}
}

// WithCache replaces the empty cache a Manager starts with.
func WithCache(c *cache.Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// New returns a Manager folding every action down to transactions sent by executor.
func New(lggr logger.Logger, reader viewreader.Reader, executor common.Address, opts ...Option) *Manager {
	m := &Manager{
		lggr:     lggr.Named("blockmanager"),
		cache:    cache.New(),
		reader:   reader,
		executor: executor,
		seeds:    map[string]cache.Value{blocks.KeyExecutor: cache.Address(executor)},
		nonces:   make(map[common.Address]*big.Int),

		foldIterations: MaxFoldIterations,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Cache returns the shared cache of the run.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// Blocks returns the loaded blocks.
func (m *Manager) Blocks() []blocks.Block { return m.blocks }

// Load parses the JSON block list.
func (m *Manager) Load(data []byte) error {
	bs, err := blocks.Load(data)
	if err != nil {
		return err
	}
	m.blocks = append(m.blocks, bs...)
	m.lggr.Debugw("Loaded blocks", "count", len(bs))

	return nil
}

// Propagate publishes the facts of every block concurrently, then repeats resolution
// until no block writes a new fact. Required facts still missing afterwards fail the run.
func (m *Manager) Propagate(ctx context.Context) error {
	for key, v := range m.seeds {
		if err := m.cache.Set(key, v, seedOrigin); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range m.blocks {
		g.Go(func() error {
			return b.ResolveState(gctx, m.cache, m.reader)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.sweep(ctx); err != nil {
		return err
	}

	var errs []error
	for _, b := range m.blocks {
		var keys []string
		for _, missing := range b.ReportMissingValues(m.cache) {
			if missing.Required {
				keys = append(keys, missing.Key)
			}
		}
		if len(keys) > 0 {
			errs = append(errs, &blocks.MissingValuesError{Block: b.Name(), Keys: keys})
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.lggr.Infow("Propagated blocks", "blocks", len(m.blocks), "keys", len(m.cache.Keys()))

	return nil
}

// sweep resolves blocks with missing fields again, as facts published by other blocks may
// have completed their preconditions.
func (m *Manager) sweep(ctx context.Context) error {
	for {
		before := len(m.cache.Keys())
		for _, b := range m.blocks {
			if len(b.ReportMissingValues(m.cache)) == 0 {
				continue
			}
			if err := b.ResolveState(ctx, m.cache, m.reader); err != nil {
				return err
			}
		}
		if len(m.cache.Keys()) == before {
			return nil
		}
	}
}

// Assemble concatenates the leaf actions of every block in input order.
func (m *Manager) Assemble(ctx context.Context) ([]actions.Action, error) {
	var out []actions.Action
	for _, b := range m.blocks {
		acts, err := b.Assemble(ctx, m.cache, m.reader)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", b.Name(), err)
		}
		m.lggr.Debugw("Assembled block", "block", b.Name(), "actions", len(acts))
		out = append(out, acts...)
	}

	return out, nil
}

// Run loads data and drives every phase, returning the transactions of the executor.
func (m *Manager) Run(ctx context.Context, data []byte) ([]actions.Action, error) {
	runID := ksuid.New().String()
	lggr := m.lggr.With("run_id", runID)
	lggr.Infow("Starting run", "executor", m.executor)

	if err := m.Load(data); err != nil {
		return nil, err
	}
	if err := m.Propagate(ctx); err != nil {
		return nil, err
	}
	acts, err := m.Assemble(ctx)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		lggr.Infow("Chain already matches the desired state")
		return nil, nil
	}

	folded, err := m.finish(ctx, acts)
	if err != nil {
		return nil, err
	}
	lggr.Infow("Finished run", "leaf_actions", len(acts), "transactions", len(folded))

	return folded, nil
}

// Plan folds leaf actions built outside of any block, e.g. a manage root rotation. Only
// the seeded facts are in the cache.
func (m *Manager) Plan(ctx context.Context, acts []actions.Action) ([]actions.Action, error) {
	if err := m.Propagate(ctx); err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		return nil, nil
	}

	return m.finish(ctx, slices.Clone(acts))
}

func (m *Manager) finish(ctx context.Context, acts []actions.Action) ([]actions.Action, error) {
	actions.Sort(acts)
	folded, err := m.Fold(ctx, acts)
	if err != nil {
		return nil, err
	}

	return m.bundle(folded)
}

func (m *Manager) bundle(acts []actions.Action) ([]actions.Action, error) {
	bundler, ok := m.cache.GetAddress(blocks.KeyBundler)
	if !ok || len(acts) < 2 {
		return acts, nil
	}

	b, err := actions.NewBundler(bundler, acts)
	if err != nil {
		return nil, err
	}

	return []actions.Action{b}, nil
}
