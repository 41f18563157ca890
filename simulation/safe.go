package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/engine/output"
)

// Safe storage slots overridden so a single owner can execute.
var (
	safeThresholdSlot = common.BigToHash(big.NewInt(4))
	safeNonceSlot     = common.BigToHash(big.NewInt(5))
)

var ErrNoOwners = errors.New("multisig has no owners")

// Result is the outcome of one simulated transaction.
type Result struct {
	ID           string      `json:"id"`
	Status       bool        `json:"status"`
	URL          string      `json:"url"`
	ErrorMessage string      `json:"error_message,omitempty"`
	SafeTxHash   common.Hash `json:"safe_tx_hash"`
}

type stateObject struct {
	Storage map[string]string `json:"storage,omitempty"`
}

type blockHeader struct {
	Timestamp string `json:"timestamp"`
}

type simulationRequest struct {
	NetworkID      string                 `json:"network_id"`
	From           common.Address         `json:"from"`
	To             common.Address         `json:"to"`
	Input          hexutil.Bytes          `json:"input"`
	Value          string                 `json:"value"`
	Save           bool                   `json:"save"`
	SaveIfFails    bool                   `json:"save_if_fails"`
	SimulationType string                 `json:"simulation_type"`
	StateObjects   map[string]stateObject `json:"state_objects,omitempty"`
	BlockHeader    *blockHeader           `json:"block_header,omitempty"`
}

type bundleRequest struct {
	Simulations []simulationRequest `json:"simulations"`
}

type simulation struct {
	ID           string `json:"id"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type simulationResponse struct {
	Simulation simulation `json:"simulation"`
}

type bundleResponse struct {
	SimulationResults []simulationResponse `json:"simulation_results"`
}

// SimulateSafeTx simulates executing cfg on its Safe as the first owner, with the threshold
// lowered to one and the nonce set to the one of cfg.
func (c *Client) SimulateSafeTx(ctx context.Context, cfg output.SimulationConfig) (*Result, error) {
	req, hash, err := c.safeRequest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var resp simulationResponse
	if err := c.post(ctx, "simulate", req, &resp); err != nil {
		return nil, err
	}

	res := c.result(resp.Simulation, hash)
	c.lggr.Infow("Simulated safe transaction", "multisig", cfg.Multisig, "nonce", cfg.Nonce, "status", res.Status, "url", res.URL)

	return res, nil
}

// SimulateTimelock simulates proposing a timelock batch and executing it once delay has
// elapsed, as one bundle. A nil delay uses the minimum delay of the timelock execute
// targets.
func (c *Client) SimulateTimelock(ctx context.Context, propose, execute output.SimulationConfig, delay *big.Int) ([]*Result, error) {
	if propose.NetworkID != execute.NetworkID {
		return nil, fmt.Errorf("%w: network %d != %d", output.ErrInvalidConfig, propose.NetworkID, execute.NetworkID)
	}
	if delay == nil {
		minDelay, err := viewreader.CallOne[*big.Int](ctx, c.reader, contracts.TimelockABI, execute.To, "getMinDelay")
		if err != nil {
			return nil, err
		}
		delay = minDelay
	}
	if !delay.IsInt64() {
		return nil, fmt.Errorf("%w: delay %s out of range", output.ErrInvalidConfig, delay)
	}

	proposeReq, proposeHash, err := c.safeRequest(ctx, propose)
	if err != nil {
		return nil, err
	}
	executeReq, executeHash, err := c.safeRequest(ctx, execute)
	if err != nil {
		return nil, err
	}
	at := c.now().Add(time.Duration(delay.Int64()+1) * time.Second)
	executeReq.BlockHeader = &blockHeader{Timestamp: hexutil.EncodeUint64(uint64(at.Unix()))}

	var resp bundleResponse
	if err := c.post(ctx, "simulate-bundle", bundleRequest{Simulations: []simulationRequest{proposeReq, executeReq}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.SimulationResults) != 2 {
		return nil, fmt.Errorf("expected 2 simulation results, got %d", len(resp.SimulationResults))
	}

	out := []*Result{
		c.result(resp.SimulationResults[0].Simulation, proposeHash),
		c.result(resp.SimulationResults[1].Simulation, executeHash),
	}
	c.lggr.Infow("Simulated timelock bundle", "delay", delay, "propose", out[0].Status, "execute", out[1].Status)

	return out, nil
}

// safeRequest builds the execTransaction simulation of cfg, signed by the first owner
// with a pre-validated signature.
func (c *Client) safeRequest(ctx context.Context, cfg output.SimulationConfig) (simulationRequest, common.Hash, error) {
	if err := cfg.Validate(); err != nil {
		return simulationRequest{}, common.Hash{}, err
	}
	value, err := cfg.BigValue()
	if err != nil {
		return simulationRequest{}, common.Hash{}, err
	}

	owners, err := viewreader.CallOne[[]common.Address](ctx, c.reader, contracts.SafeABI, cfg.Multisig, "getOwners")
	if err != nil {
		return simulationRequest{}, common.Hash{}, err
	}
	if len(owners) == 0 {
		return simulationRequest{}, common.Hash{}, fmt.Errorf("%w: %s", ErrNoOwners, cfg.Multisig)
	}
	signer := owners[0]

	zero := new(big.Int)
	nonce := new(big.Int).SetUint64(uint64(cfg.Nonce))
	hash, err := viewreader.CallOne[[32]byte](ctx, c.reader, contracts.SafeABI, cfg.Multisig, "getTransactionHash",
		cfg.To, value, []byte(cfg.Data), cfg.Operation, zero, zero, zero, common.Address{}, common.Address{}, nonce)
	if err != nil {
		return simulationRequest{}, common.Hash{}, err
	}

	input, err := contracts.Pack(contracts.SafeABI, "execTransaction",
		cfg.To, value, []byte(cfg.Data), cfg.Operation, zero, zero, zero, common.Address{}, common.Address{},
		actions.PrevalidatedSignatures([]common.Address{signer}, 1))
	if err != nil {
		return simulationRequest{}, common.Hash{}, err
	}

	return simulationRequest{
		NetworkID:      strconv.FormatUint(uint64(cfg.NetworkID), 10),
		From:           signer,
		To:             cfg.Multisig,
		Input:          input,
		Value:          "0",
		Save:           true,
		SaveIfFails:    true,
		SimulationType: "full",
		StateObjects: map[string]stateObject{
			cfg.Multisig.Hex(): {Storage: map[string]string{
				safeThresholdSlot.Hex(): common.BigToHash(big.NewInt(1)).Hex(),
				safeNonceSlot.Hex():     common.BigToHash(nonce).Hex(),
			}},
		},
	}, common.Hash(hash), nil
}

func (c *Client) result(sim simulation, hash common.Hash) *Result {
	return &Result{
		ID:           sim.ID,
		Status:       sim.Status,
		URL:          c.simulationURL(sim.ID),
		ErrorMessage: sim.ErrorMessage,
		SafeTxHash:   hash,
	}
}
