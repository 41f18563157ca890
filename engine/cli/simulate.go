package cli

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/vault-admin/engine/output"
	"github.com/smartcontractkit/vault-admin/simulation"
)

var errSimulationFailed = errors.New("simulation failed")

var (
	simulateLong = longDesc(`
Simulates a planned Safe transaction on Tenderly as if its first owner executed it alone.
Credentials are read from TENDERLY_ACCESS_KEY, TENDERLY_ACCOUNT_SLUG and TENDERLY_PROJECT_SLUG.
`)

	simulateExample = examples(`
# Simulate the first planned transaction
vault-admin simulate --tx output/tx_0.json
`)

	simulateTimelockLong = longDesc(`
Simulates proposing a timelock batch and executing it once its delay has elapsed, as one
Tenderly bundle.
`)

	simulateTimelockExample = examples(`
# Simulate a propose transaction and its execution after the timelock minimum delay
vault-admin simulate-timelock --propose output/tx_0.json --execute later/tx_0.json

# Use a custom delay in seconds
vault-admin simulate-timelock --propose output/tx_0.json --execute later/tx_0.json --delay 172800
`)
)

func newSimulateCmd(cfg Config) *cobra.Command {
	var txPath string

	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Simulate a planned transaction",
		Long:    simulateLong,
		Example: simulateExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, cfg, txPath)
		},
	}

	cmd.Flags().StringVar(&txPath, "tx", "", "Path to a tx_<i>.json file (required)")
	_ = cmd.MarkFlagRequired("tx")

	return cmd
}

func runSimulate(cmd *cobra.Command, cfg Config, txPath string) error {
	tx, err := output.Load(txPath)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r, closeReader, err := s.openReader(ctx, cfg, tx.NetworkID)
	if err != nil {
		return err
	}
	defer closeReader()

	client, err := s.simulator(cfg, r)
	if err != nil {
		return err
	}
	res, err := client.SimulateSafeTx(ctx, tx)
	if err != nil {
		return err
	}

	return printResults(cmd, res)
}

func newSimulateTimelockCmd(cfg Config) *cobra.Command {
	var (
		proposePath string
		executePath string
		delay       uint64
	)

	cmd := &cobra.Command{
		Use:     "simulate-timelock",
		Short:   "Simulate a timelock proposal and its execution",
		Long:    simulateTimelockLong,
		Example: simulateTimelockExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d *big.Int
			if cmd.Flags().Changed("delay") {
				d = new(big.Int).SetUint64(delay)
			}

			return runSimulateTimelock(cmd, cfg, proposePath, executePath, d)
		},
	}

	cmd.Flags().StringVar(&proposePath, "propose", "", "Path to the propose transaction (required)")
	cmd.Flags().StringVar(&executePath, "execute", "", "Path to the execute transaction (required)")
	cmd.Flags().Uint64Var(&delay, "delay", 0, "Delay in seconds, the timelock minimum delay by default")
	_ = cmd.MarkFlagRequired("propose")
	_ = cmd.MarkFlagRequired("execute")

	return cmd
}

func runSimulateTimelock(cmd *cobra.Command, cfg Config, proposePath, executePath string, delay *big.Int) error {
	propose, err := output.Load(proposePath)
	if err != nil {
		return err
	}
	execute, err := output.Load(executePath)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r, closeReader, err := s.openReader(ctx, cfg, execute.NetworkID)
	if err != nil {
		return err
	}
	defer closeReader()

	client, err := s.simulator(cfg, r)
	if err != nil {
		return err
	}
	res, err := client.SimulateTimelock(ctx, propose, execute, delay)
	if err != nil {
		return err
	}

	return printResults(cmd, res...)
}

// printResults prints every result and fails when one of them reverted.
func printResults(cmd *cobra.Command, results ...*simulation.Result) error {
	var errs []error
	for _, res := range results {
		status := "success"
		if !res.Status {
			status = "failed"
			errs = append(errs, fmt.Errorf("%w: %s: %s", errSimulationFailed, res.ID, res.ErrorMessage))
		}
		cmd.Printf("%s %s safe_tx_hash=%s\n", status, res.URL, res.SafeTxHash)
	}

	return errors.Join(errs...)
}
