// Command evmixd wires the VKV-backed RPC service together: it loads
// the TOML config named by WEB3_CONFIG_FILE_PATH, dials Redis, opens
// the upstream CometBFT client, constructs the rpcapi.Backend and the
// notify.Poller, and runs the poller until interrupted. JSON-RPC
// HTTP/WS transport is out of scope (spec.md §1) — evmixd's own job
// ends at handing a live Backend and Poller to whatever framework
// mounts the eth_*/net_*/web3_*/debug_* methods onto a wire protocol.
// Thin wiring only, in the style of the teacher's evmd/cmd/evmd/cmd
// root command (cobra + viper, nothing more).
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/config"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/notify"
	"github.com/summit-chain/evmix/rpcapi"
	"github.com/summit-chain/evmix/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "evmixd",
		Short: "EVM-chain indexing and query service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = os.Getenv("WEB3_CONFIG_FILE_PATH")
			}
			if configPath == "" {
				return fmt.Errorf("evmixd: config path not set; pass --config or set WEB3_CONFIG_FILE_PATH")
			}
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the service TOML config (defaults to $WEB3_CONFIG_FILE_PATH)")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	logger := log.NewLogger(os.Stdout)

	cfg, err := config.LoadServiceConfig(configPath)
	if err != nil {
		return err
	}

	conn, err := config.DialRedis(cfg.RedisURL)
	if err != nil {
		return err
	}

	schema := indexkv.NewSchema("evmix")
	getter := chainstate.NewGetter(conn, schema)

	up, err := upstream.New(cfg.TendermintURL)
	if err != nil {
		return fmt.Errorf("evmixd: dial upstream %s: %w", cfg.TendermintURL, err)
	}

	backend := rpcapi.NewBackend(
		logger,
		getter,
		up,
		new(big.Int).SetUint64(cfg.ChainID),
		new(big.Int).SetUint64(cfg.GasPrice),
	)

	poller := notify.NewPoller(logger, getter, up)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("evmixd starting",
		"http_port", cfg.HTTPPort, "ws_port", cfg.WSPort,
		"chain_id", backend.ChainID, "gas_price", backend.GasPrice)
	poller.Run(ctx)
	logger.Info("evmixd stopped")
	return nil
}
