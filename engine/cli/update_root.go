package cli

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/config"
	"github.com/smartcontractkit/vault-admin/engine/blockmanager"
	"github.com/smartcontractkit/vault-admin/processors"
)

var (
	updateRootLong = longDesc(`
Sets the manage root of every strategist of a product to the given root. The calls are sent
by the product multisig and batched into one Safe transaction of the executor.
`)

	updateRootExample = examples(`
# Rotate the root of the liquideth strategists on arbitrum, using Safe nonce 12
vault-admin update-root --product liquideth --network 42161 --nonce 12 --executor 0x00000000000000000000000000000000000000ee --root 0x1f...
`)
)

var errInvalidRoot = errors.New("invalid manage root")

func newUpdateRootCmd(cfg Config) *cobra.Command {
	var (
		rootHex string
		product string
		network uint32
		nonce   uint32
		outDir  string
	)

	cmd := &cobra.Command{
		Use:     "update-root",
		Short:   "Set the manage root of the strategists of a product",
		Long:    updateRootLong,
		Example: updateRootExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := parseRoot(rootHex)
			if err != nil {
				return err
			}
			var safeNonce *big.Int
			if cmd.Flags().Changed("nonce") {
				safeNonce = new(big.Int).SetUint64(uint64(nonce))
			}

			return runUpdateRoot(cmd, cfg, root, product, network, safeNonce, outDir)
		},
	}

	cmd.Flags().StringVar(&rootHex, "root", "", "New manage root, 32 bytes hex (required)")
	cmd.Flags().StringVar(&product, "product", "", "Product name in the config (required)")
	cmd.Flags().Uint32Var(&network, "network", 0, "Chain id (required)")
	cmd.Flags().Uint32Var(&nonce, "nonce", 0, "Safe nonce, the on-chain nonce by default")
	cmd.Flags().String("executor", "", "Owner of the product multisig sending the transaction (required)")
	cmd.Flags().StringVarP(&outDir, "out", "o", defaultOutputDir, "Output directory")
	_ = cmd.MarkFlagRequired("root")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("network")
	_ = cmd.MarkFlagRequired("executor")

	return cmd
}

func parseRoot(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q", errInvalidRoot, s)
	}

	return common.BytesToHash(b), nil
}

func runUpdateRoot(cmd *cobra.Command, cfg Config, root common.Hash, product string, network uint32, nonce *big.Int, outDir string) error {
	executor, err := addressFlag(cmd, "executor")
	if err != nil {
		return err
	}

	s, err := newSession(cmd, cfg)
	if err != nil {
		return err
	}
	pc, err := s.conf.Product(product, network)
	if err != nil {
		return err
	}
	manager, err := contracts.ParseAddress(pc.Manager)
	if err != nil {
		return fmt.Errorf("%w: product %s manager: %w", config.ErrConfig, product, err)
	}
	multisig, err := contracts.ParseAddress(pc.Multisig)
	if err != nil {
		return fmt.Errorf("%w: product %s multisig: %w", config.ErrConfig, product, err)
	}
	strategists, err := pc.StrategistAddresses()
	if err != nil {
		return err
	}
	multisend, err := s.conf.MultiSend(network)
	if err != nil {
		return err
	}

	lggr := s.lggr.With("network", config.NetworkLabel(network), "product", product)
	ctx := cmd.Context()
	r, closeReader, err := s.openReader(ctx, cfg, network)
	if err != nil {
		return err
	}
	defer closeReader()

	var leaves []actions.Action
	for _, strategist := range strategists {
		acts, err := processors.UpdateManageRoot(ctx, r, manager, strategist, root, actions.Multisig(multisig))
		if err != nil {
			return fmt.Errorf("strategist %s: %w", strategist, err)
		}
		leaves = append(leaves, acts...)
	}
	lggr.Infow("Built manage root updates", "strategists", len(strategists), "updates", len(leaves))

	opts := []blockmanager.Option{
		blockmanager.WithNetworkID(network),
		blockmanager.WithMultisend(multisend),
	}
	if nonce != nil {
		opts = append(opts, blockmanager.WithMultisigNonce(multisig, nonce))
	}
	txs, err := blockmanager.New(lggr, r, executor, opts...).Plan(ctx, leaves)
	if err != nil {
		return err
	}

	return writeTransactions(cmd, network, outDir, txs)
}
