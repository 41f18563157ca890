package viewreader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"

	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

const (
	// DefaultWorkers is the number of goroutines serving remote requests.
	DefaultWorkers = 8
	// DefaultMaxRetries is the number of retries of a rate limited request.
	DefaultMaxRetries = 10
	// DefaultRetryDelay is the fixed delay between retries of a rate limited request.
	DefaultRetryDelay = 1 * time.Second

	requestQueueSize = 100
)

var (
	ErrManagerClosed    = errors.New("view request manager is closed")
	ErrCachedError      = errors.New("cached error")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

var _ Reader = (*Manager)(nil)

// Manager deduplicates view reads against a remote endpoint. All reads observe the same
// pinned block so that derivations made across a run are consistent with each other.
type Manager struct {
	lggr   logger.Logger
	client ContractReader

	workers    int
	maxRetries uint
	retryDelay time.Duration
	pinned     *uint64

	block uint64
	jobs  chan job
	wg    sync.WaitGroup

	// submitMu guards closed and sending on jobs.
	submitMu sync.RWMutex
	closed   bool

	cacheMu sync.Mutex
	cache   map[string]result

	inflight singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		m.workers = n
	}
}

// WithMaxRetries sets how many times a rate limited request is retried.
func WithMaxRetries(n uint) Option {
	return func(m *Manager) {
		m.maxRetries = n
	}
}

// WithRetryDelay sets the delay between retries of a rate limited request.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// WithPinnedBlock pins reads to block instead of the chain tip at construction time.
func WithPinnedBlock(block uint64) Option {
	return func(m *Manager) {
		m.pinned = &block
	}
}

// New resolves the observation block and starts the worker pool. Close must be called to
// stop the workers.
func New(ctx context.Context, lggr logger.Logger, client ContractReader, opts ...Option) (*Manager, error) {
	m := &Manager{
		lggr:       lggr.Named("viewreader"),
		client:     client,
		workers:    DefaultWorkers,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		cache:      make(map[string]result),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.workers < 1 {
		return nil, fmt.Errorf("invalid worker count %d", m.workers)
	}

	if m.pinned != nil {
		m.block = *m.pinned
	} else {
		block, err := withRateLimitRetry(ctx, m.lggr, "BlockNumber", m.maxRetries, m.retryDelay, func(ctx context.Context) (uint64, error) {
			return client.BlockNumber(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve block number: %w", err)
		}
		m.block = block
	}

	m.jobs = make(chan job, requestQueueSize)
	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.worker()
	}

	m.lggr.Infow("View request manager started", "block", m.block, "workers", m.workers)

	return m, nil
}

// PinnedBlock returns the block number every read is observed at.
func (m *Manager) PinnedBlock() uint64 {
	return m.block
}

// Request returns the raw return data of calling target with calldata at the pinned block.
func (m *Manager) Request(ctx context.Context, target common.Address, calldata []byte) ([]byte, error) {
	return m.do(ctx, Request{Kind: KindCall, Target: target, Calldata: calldata})
}

// RequestStorage returns the storage word at slot of target at the pinned block.
func (m *Manager) RequestStorage(ctx context.Context, target common.Address, slot common.Hash) (*uint256.Int, error) {
	data, err := m.do(ctx, Request{Kind: KindStorage, Target: target, Slot: slot})
	if err != nil {
		return nil, err
	}

	return new(uint256.Int).SetBytes(data), nil
}

// CodeLength returns the length of the code deployed at target at the pinned block.
func (m *Manager) CodeLength(ctx context.Context, target common.Address) (int, error) {
	data, err := m.do(ctx, Request{Kind: KindCode, Target: target})
	if err != nil {
		return 0, err
	}

	return len(data), nil
}

// Close stops accepting requests and waits for the workers to exit.
func (m *Manager) Close() {
	m.submitMu.Lock()
	if m.closed {
		m.submitMu.Unlock()
		return
	}
	m.closed = true
	close(m.jobs)
	m.submitMu.Unlock()

	m.wg.Wait()
}

func (m *Manager) do(ctx context.Context, req Request) ([]byte, error) {
	key := req.Key()

	if res, ok := m.cached(key); ok {
		return res.bytes()
	}

	v, err, _ := m.inflight.Do(key, func() (any, error) {
		// another flight may have completed between the lookup and joining the group
		if res, ok := m.cached(key); ok {
			return res, nil
		}

		res, err := m.submit(ctx, req)
		if err != nil {
			return nil, err
		}

		m.cacheMu.Lock()
		m.cache[key] = res
		m.cacheMu.Unlock()

		return result{data: res.data, err: res.err}, nil
	})
	if err != nil {
		return nil, err
	}

	res := v.(result)
	if res.err != nil {
		return nil, res.err
	}

	return common.CopyBytes(res.data), nil
}

func (m *Manager) cached(key string) (result, bool) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	res, ok := m.cache[key]
	if !ok {
		return result{}, false
	}
	if res.err != nil {
		return result{err: fmt.Errorf("%w: %w", ErrCachedError, res.err)}, true
	}

	return res, true
}

// submit hands req to the worker pool and waits for its response. Errors returned here are
// not cached: they concern the submission, not the remote call.
func (m *Manager) submit(ctx context.Context, req Request) (result, error) {
	j := job{ctx: ctx, req: req, resp: make(chan result, 1)}

	m.submitMu.RLock()
	if m.closed {
		m.submitMu.RUnlock()
		return result{}, ErrManagerClosed
	}
	select {
	case m.jobs <- j:
		m.submitMu.RUnlock()
	case <-ctx.Done():
		m.submitMu.RUnlock()
		return result{}, ctx.Err()
	}

	select {
	case res := <-j.resp:
		if res.err != nil && ctx.Err() != nil {
			return result{}, ctx.Err()
		}

		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for j := range m.jobs {
		data, err := m.execute(j.ctx, j.req)
		// resp is buffered, an abandoned receiver never blocks the worker
		j.resp <- result{data: data, err: err}
	}
}

func (m *Manager) execute(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block := new(big.Int).SetUint64(m.block)
	opName := req.Kind.String()

	return withRateLimitRetry(ctx, m.lggr, opName, m.maxRetries, m.retryDelay, func(ctx context.Context) ([]byte, error) {
		switch req.Kind {
		case KindCall:
			to := req.Target
			return m.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: req.Calldata}, block)
		case KindStorage:
			return m.client.StorageAt(ctx, req.Target, req.Slot, block)
		case KindCode:
			return m.client.CodeAt(ctx, req.Target, block)
		default:
			return nil, fmt.Errorf("unknown request kind %d", req.Kind)
		}
	})
}

func (r result) bytes() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}

	return common.CopyBytes(r.data), nil
}

func traceID() string {
	return uuid.New().String()
}
