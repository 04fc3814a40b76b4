package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/yukki/internal/sudo"
)

func newSudoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sudo",
		Short: "Manage sudoers",
	}

	cmd.AddCommand(newSudoListCmd())
	cmd.AddCommand(newSudoChangeCmd("add", "Grant sudo to a user id"))
	cmd.AddCommand(newSudoChangeCmd("remove", "Revoke sudo from a user id"))
	return cmd
}

func newSudoListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List owners and sudoers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, closeStore, err := openSudo(cmd, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			for _, id := range reg.List() {
				role := "sudo"
				if reg.IsOwner(id) {
					role = "owner"
				}
				fmt.Fprintf(out, "%d\t%s\n", id, role)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSudoChangeCmd(action, short string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   action + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			reg, closeStore, err := openSudo(cmd, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			switch {
			case action == "add" && reg.Add(ctx, id):
				fmt.Fprintf(out, "%d is now a sudoer\n", id)
			case action == "add":
				fmt.Fprintf(out, "%d is already a sudoer\n", id)
			case reg.IsOwner(id):
				return fmt.Errorf("%d is an owner and cannot be removed", id)
			case reg.Remove(ctx, id):
				fmt.Fprintf(out, "%d is no longer a sudoer\n", id)
			default:
				fmt.Fprintf(out, "%d is not a sudoer\n", id)
			}
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func openSudo(cmd *cobra.Command, configPath string) (*sudo.Registry, func() error, error) {
	cfg, s, err := openStore(cmd.Context(), configPath)
	if err != nil {
		return nil, nil, err
	}
	reg, err := sudo.New(sudo.Opts{Store: s, Owners: cfg.OwnerIDs})
	if err == nil {
		err = reg.Load(cmd.Context())
	}
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return reg, s.Close, nil
}
