package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	formsaver "github.com/goliatone/go-formsaver"
)

func newInspectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect KEY",
		Short: "Print the stored entry for KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			raw, ok, err := e.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no entry for %q", args[0])
			}
			payload, err := formsaver.Decode(raw)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(map[string]any{
				"version": payload.Version,
				"data":    payload.Data,
				"meta":    payload.Meta,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newClearCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear KEY",
		Short: "Remove the stored entry for KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	}
}

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate KEY",
		Short: "Apply the configured migration rules to the entry for KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			target := e.file.Defaults.Version
			if target.IsZero() {
				return fmt.Errorf("no target version: set defaults.version in --config")
			}
			steps, err := formsaver.NewRuleCompiler().CompileAll(e.file.Migrations)
			if err != nil {
				return err
			}
			if err := formsaver.ValidateMigrations(steps); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			key := args[0]
			raw, ok, err := e.store.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no entry for %q", key)
			}
			payload, err := formsaver.Decode(raw)
			if err != nil {
				return err
			}
			from := payload.Version
			migrated, err := formsaver.Migrate(payload, target, steps)
			if err != nil {
				return err
			}
			if migrated.Version == from {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: already at %s\n", key, from)
				return nil
			}
			if migrated.Version != target {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s stopped at %s, no step toward %s\n", key, migrated.Version, target)
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (dry run)\n", key, from, migrated.Version)
				return nil
			}
			encoded, err := formsaver.Encode(migrated.Data, migrated.Meta, migrated.Version)
			if err != nil {
				return err
			}
			if err := e.store.Set(cmd.Context(), key, encoded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", key, from, migrated.Version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the result without writing it")
	return cmd
}

var resolvePaths = []string{"key", "auto_key", "debounce", "version", "clear_on_submit", "storage"}

func newResolveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the effective default settings and the layer behind each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := loadFileConfig(flags)
			if err != nil {
				return err
			}
			resolved, err := formsaver.ResolveSettings(file.Defaults.Settings())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tVALUE\tSCOPE")
			for _, path := range resolvePaths {
				trace, err := resolved.Trace(path)
				if err != nil {
					return err
				}
				winner, ok := trace.Winner()
				if !ok {
					fmt.Fprintf(w, "%s\t-\t-\n", path)
					continue
				}
				fmt.Fprintf(w, "%s\t%v\t%s\n", path, winner.Value, winner.Scope.Name)
			}
			return w.Flush()
		},
	}
}
