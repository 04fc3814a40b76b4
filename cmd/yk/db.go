package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/store"
	"golang.org/x/term"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBExportCmd())
	cmd.AddCommand(newDBImportCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every store table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := openStore(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables in %s store\n", len(store.Tables), cfg.Store.Driver)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newDBExportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a portable copy of the sqlite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := openStore(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Backup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported store to %s\n", args[0])
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newDBImportCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the sqlite store with an exported copy",
		Long: `Replaces the configured sqlite store with <file>. The current database
is kept as <path>.pre_import_backup_<timestamp>. Stop the bot first and
start it again afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBImport(cmd, configPath, args[0], yes)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBImport(cmd *cobra.Command, configPath, src string, skipConfirm bool) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver != "sqlite" {
		return fmt.Errorf("import is only supported for the sqlite driver, not %s", cfg.Store.Driver)
	}

	if !skipConfirm {
		ok, err := confirm(cmd, fmt.Sprintf("This will replace %s with %s.", cfg.Store.Path, src))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	saved, err := store.Import(src, cfg.Store.Path, time.Now())
	if err != nil {
		return err
	}
	if saved != "" {
		fmt.Fprintf(out, "Previous database saved to %s\n", saved)
	}
	fmt.Fprintf(out, "Imported %s into %s. Restart the bot to use it.\n", src, cfg.Store.Path)
	return nil
}

// confirm asks the user to type "yes". A non-interactive stdin is refused
// so scripts must pass --yes explicitly.
func confirm(cmd *cobra.Command, warning string) (bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, errors.New("stdin is not a terminal; pass --yes to confirm")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "WARNING: %s\n", warning)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes", nil
	}
	return false, nil
}
