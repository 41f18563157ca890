// Package cli provides the vault-admin cobra commands.
//
//	root := cli.NewCommand(cli.Config{})
//	if err := root.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/config"
	"github.com/smartcontractkit/vault-admin/engine/output"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
	"github.com/smartcontractkit/vault-admin/simulation"
)

const (
	defaultConfigPath = "config.toml"
	defaultOutputDir  = "output"
	defaultLogLevel   = "info"
)

// Backend is a dialed RPC endpoint.
type Backend interface {
	viewreader.ContractReader
	Close()
}

// Config holds the configuration of the commands.
type Config struct {
	// Logger replaces the logger built from --log-level. Optional.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// Deps are the external dependencies of the commands.
type Deps struct {
	// Dial connects to an RPC endpoint.
	Dial func(ctx context.Context, rawURL string) (Backend, error)
	// LoadEnv loads the simulation credentials.
	LoadEnv func() (*config.EnvConfig, error)
	// ReaderOptions are passed to every view reader.
	ReaderOptions []viewreader.Option
	// SimulationOptions are passed to every simulation client.
	SimulationOptions []simulation.Option
}

func (d *Deps) applyDefaults() {
	if d.Dial == nil {
		d.Dial = func(ctx context.Context, rawURL string) (Backend, error) {
			client, err := ethclient.DialContext(ctx, rawURL)
			if err != nil {
				return nil, err
			}

			return client, nil
		}
	}
	if d.LoadEnv == nil {
		d.LoadEnv = config.LoadEnv
	}
}

// NewCommand creates the root command with every subcommand.
func NewCommand(cfg Config) *cobra.Command {
	cfg.Deps.applyDefaults()

	cmd := &cobra.Command{
		Use:           "vault-admin",
		Short:         "Plan and simulate vault admin transactions",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", defaultConfigPath, "Path to the TOML config")
	cmd.PersistentFlags().String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newPlanCmd(cfg),
		newUpdateRootCmd(cfg),
		newSimulateCmd(cfg),
		newSimulateTimelockCmd(cfg),
	)

	return cmd
}

// session holds what every command resolves from the persistent flags.
type session struct {
	lggr logger.Logger
	conf *config.Config
}

func newSession(cmd *cobra.Command, cfg Config) (*session, error) {
	lggr := cfg.Logger
	if lggr == nil {
		levelStr, _ := cmd.Flags().GetString("log-level")
		level, err := logger.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
		lggr, err = (&logger.Config{Level: level}).New()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	path, _ := cmd.Flags().GetString("config")
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return &session{lggr: lggr, conf: conf}, nil
}

// openReader dials the RPC endpoint of network and starts a view reader pinned to its tip.
// The returned func closes both.
func (s *session) openReader(ctx context.Context, cfg Config, network uint32) (*viewreader.Manager, func(), error) {
	rpcURL, err := s.conf.RPCURL(network)
	if err != nil {
		return nil, nil, err
	}
	backend, err := cfg.Deps.Dial(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial network %s: %w", config.NetworkLabel(network), err)
	}
	r, err := viewreader.New(ctx, s.lggr, backend, cfg.Deps.ReaderOptions...)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return r, func() {
		r.Close()
		backend.Close()
	}, nil
}

func (s *session) simulator(cfg Config, r viewreader.Reader) (*simulation.Client, error) {
	env, err := cfg.Deps.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	return simulation.NewClient(s.lggr, simulation.Credentials{
		AccessKey:   env.Tenderly.AccessKey,
		AccountSlug: env.Tenderly.AccountSlug,
		ProjectSlug: env.Tenderly.ProjectSlug,
	}, r, cfg.Deps.SimulationOptions...)
}

// writeTransactions writes one simulation config per transaction to dir.
func writeTransactions(cmd *cobra.Command, network uint32, dir string, txs []actions.Action) error {
	if len(txs) == 0 {
		cmd.Println("Nothing to do: the chain already matches the desired state")
		return nil
	}

	configs := make([]output.SimulationConfig, 0, len(txs))
	for _, tx := range txs {
		c, err := output.FromAction(network, tx)
		if err != nil {
			return err
		}
		configs = append(configs, c)
	}

	paths, err := output.WriteAll(dir, configs)
	if err != nil {
		return err
	}
	for i, p := range paths {
		cmd.Printf("%s\n%s\n", p, txs[i].Describe())
	}

	return nil
}

var errMissingFlag = errors.New("missing flag")

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return common.Address{}, fmt.Errorf("%w: --%s", errMissingFlag, name)
	}

	addr, err := contracts.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}

	return addr, nil
}
