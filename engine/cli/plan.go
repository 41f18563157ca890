package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/vault-admin/blocks"
	"github.com/smartcontractkit/vault-admin/config"
	"github.com/smartcontractkit/vault-admin/engine/blockmanager"
)

var (
	planLong = longDesc(`
Reads the building blocks of a JSON or YAML file, compares their desired state with the chain and
writes the transactions the executor must send to reach it, one file per transaction.
`)

	planExample = examples(`
# Plan the blocks of vault.json on mainnet for the given executor
vault-admin plan --blocks vault.json --network 1 --executor 0x00000000000000000000000000000000000000ee

# Write the transactions to a custom directory
vault-admin plan --blocks vault.json --network 1 --executor 0x00000000000000000000000000000000000000ee --out txs
`)
)

func newPlanCmd(cfg Config) *cobra.Command {
	var (
		blocksPath string
		network    uint32
		outDir     string
	)

	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Plan the transactions of a block file",
		Long:    planLong,
		Example: planExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, cfg, blocksPath, network, outDir)
		},
	}

	cmd.Flags().StringVar(&blocksPath, "blocks", "", "Path to the JSON or YAML block file (required)")
	cmd.Flags().Uint32Var(&network, "network", 0, "Chain id (required)")
	cmd.Flags().String("executor", "", "Address sending the transactions (required)")
	cmd.Flags().StringVarP(&outDir, "out", "o", defaultOutputDir, "Output directory")
	_ = cmd.MarkFlagRequired("blocks")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("executor")

	return cmd
}

func runPlan(cmd *cobra.Command, cfg Config, blocksPath string, network uint32, outDir string) error {
	executor, err := addressFlag(cmd, "executor")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(blocksPath)
	if err != nil {
		return fmt.Errorf("failed to read blocks: %w", err)
	}
	if ext := filepath.Ext(blocksPath); ext == ".yaml" || ext == ".yml" {
		if data, err = blocks.FromYAML(data); err != nil {
			return err
		}
	}

	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	lggr := s.lggr.With("network", config.NetworkLabel(network))

	ctx := cmd.Context()
	r, closeReader, err := s.openReader(ctx, cfg, network)
	if err != nil {
		return err
	}
	defer closeReader()

	opts := []blockmanager.Option{blockmanager.WithNetworkID(network)}
	if multisend, err := s.conf.MultiSend(network); err == nil {
		opts = append(opts, blockmanager.WithMultisend(multisend))
	} else {
		lggr.Warnw("No multi send contract configured", "err", err)
	}

	txs, err := blockmanager.New(lggr, r, executor, opts...).Run(ctx, data)
	if err != nil {
		return err
	}

	return writeTransactions(cmd, network, outDir, txs)
}
