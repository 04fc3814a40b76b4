package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// defaultConfigPath is used when --config is not given.
const defaultConfigPath = "yukki.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "yk",
		Short:        "Yukki: Telegram voice chat music bot",
		Long:         "Yukki streams audio and video into Telegram voice chats through a pool of assistant accounts.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newSudoCmd())
	cmd.AddCommand(newAssistantCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "yk %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", defaultConfigPath, "path to Yukki config file")
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
