package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/yukki/internal/app"
	"github.com/zulandar/yukki/internal/store"
)

func newAssistantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Inspect assistant assignments",
	}
	cmd.AddCommand(newAssistantShowCmd())
	return cmd
}

func newAssistantShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Show the assistant stored for a chat",
		Long: "Prints the stored assistant index for a chat without assigning one.\n\n" +
			"Group and channel ids are negative; put them after -- so they are not read as flags.",
		Example: "  yk assistant show --config yukki.yaml -- -1001234567890",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			cfg, s, err := openStore(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			v, ok, err := s.Get(cmd.Context(), store.TableAssistants, chatID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "Chat %d has no assistant assigned\n", chatID)
				return nil
			}
			idx, err := strconv.Atoi(v)
			if err != nil {
				fmt.Fprintf(out, "Chat %d has a malformed assignment %q\n", chatID, v)
				return nil
			}

			pool := app.BuildPool(cfg)
			name, status := "unknown", "offline"
			if slices.Contains(pool.Live(), idx) {
				status = "live"
			}
			if idx >= 1 && idx <= len(cfg.Assistants) {
				name = cfg.Assistants[idx-1].Name
			}
			fmt.Fprintf(out, "Chat %d: assistant %d (%s, %s)\n", chatID, idx, name, status)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}
