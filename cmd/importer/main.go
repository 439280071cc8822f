// Command importer runs the one-shot historical-snapshot import
// (spec.md §4.5): it opens the external column-family store named by
// its own TOML config, replays every height into the VKV through a
// chainstate.Setter, and exits. Thin cobra wiring, matching the
// teacher's CLI style.
package main

import (
	"fmt"
	"os"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/config"
	"github.com/summit-chain/evmix/indexkv"
	"github.com/summit-chain/evmix/importer"
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
		Use:   "importer",
		Short: "replay a historical consensus-state export into the VKV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				return fmt.Errorf("importer: --config is required")
			}
			return run(cmd, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the importer TOML config")
	return cmd
}

func run(cmd *cobra.Command, configPath string) error {
	logger := log.NewLogger(os.Stdout)

	cfg, err := config.LoadImporterConfig(configPath)
	if err != nil {
		return err
	}

	store, err := importer.OpenExternalStore(cfg.StateDBPath, cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("importer: open external store: %w", err)
	}
	defer store.Close()

	conn, err := config.DialRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	schema := indexkv.NewSchema("evmix")
	setter := chainstate.NewSetter(conn, schema)

	if cfg.Clear {
		if err := setter.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("importer: clear namespace: %w", err)
		}
	}

	im := importer.New(store, setter, logger)
	return im.Run(cmd.Context())
}
