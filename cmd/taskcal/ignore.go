package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskcal/internal/identity"
	"taskcal/internal/model"
)

func newIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage ignore scopes",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Hide a list, or an item from a date on",
		Example: `  taskcal ignore add --user u1 --type list --key <list-id>
  taskcal ignore add --user u1 --type item-from --key <item-id> --cutoff 2025-10-01`,
		RunE: runIgnoreAdd,
	}
	add.Flags().String("type", string(model.ScopeList), "scope type: list or item-from")
	add.Flags().String("key", "", "list id or item id (required)")
	add.Flags().String("cutoff", "", "first hidden day for item-from scopes, YYYY-MM-DD")
	_ = add.MarkFlagRequired("key")

	toggle := &cobra.Command{
		Use:   "toggle <hash>",
		Short: "Turn a scope on or off",
		Args:  cobra.ExactArgs(1),
		RunE:  runIgnoreToggle,
	}
	toggle.Flags().Bool("active", false, "new state of the scope")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every scope, active or not",
		RunE:  runIgnoreList,
	}

	cmd.AddCommand(add, toggle, list)
	return cmd
}

func runIgnoreAdd(cmd *cobra.Command, _ []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	typ, _ := cmd.Flags().GetString("type")
	key, _ := cmd.Flags().GetString("key")
	cutoffFlag, _ := cmd.Flags().GetString("cutoff")

	var cutoff *time.Time
	if cutoffFlag != "" {
		c, err := identity.ParseDate(cutoffFlag)
		if err != nil {
			return fmt.Errorf("--cutoff: %w", err)
		}
		cutoff = &c
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	scope, err := a.svc.Ignore(cmd.Context(), user, model.ScopeType(typ), key, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scope %s active\n", scope.Hash)
	return nil
}

func runIgnoreToggle(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	active, _ := cmd.Flags().GetBool("active")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.SetIgnoreActive(cmd.Context(), user, args[0], active); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scope %s active=%t\n", args[0], active)
	return nil
}

func runIgnoreList(cmd *cobra.Command, _ []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	scopes, err := a.store.ListScopes(cmd.Context(), user)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tTYPE\tKEY\tCUTOFF\tACTIVE")
	for _, s := range scopes {
		cutoff := "-"
		if s.Cutoff != nil {
			cutoff = identity.FormatDate(*s.Cutoff)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", s.Hash, s.Type, s.Key, cutoff, s.Active)
	}
	return tw.Flush()
}
