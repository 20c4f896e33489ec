package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	formsaver "github.com/goliatone/go-formsaver"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

type rootFlags struct {
	configPath string
	storageDSN string
}

// env is what every subcommand works against.
type env struct {
	file  formsaver.FileConfig
	store storage.Storage
}

func (e *env) Close() error {
	return storage.Close(e.store)
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "formsaver",
		Short:         "Inspect and maintain stored form state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "configuration file (YAML or JSONC)")
	root.PersistentFlags().StringVar(&flags.storageDSN, "storage", "", "storage DSN, overrides the configured local store")

	root.AddCommand(
		newInspectCmd(flags),
		newClearCmd(flags),
		newMigrateCmd(flags),
		newResolveCmd(flags),
	)
	return root
}

func loadFileConfig(flags *rootFlags) (formsaver.FileConfig, error) {
	if flags.configPath == "" {
		return formsaver.FileConfig{}, nil
	}
	return formsaver.LoadConfigFile(flags.configPath)
}

func openEnv(flags *rootFlags) (*env, error) {
	file, err := loadFileConfig(flags)
	if err != nil {
		return nil, err
	}
	dsn := flags.storageDSN
	if dsn == "" {
		dsn = file.Storage.Local
	}
	if dsn == "" {
		return nil, errors.New("no storage: pass --storage or set storage.local in --config")
	}
	store, err := storage.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", dsn, err)
	}
	return &env{file: file, store: store}, nil
}
