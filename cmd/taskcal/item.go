package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"taskcal/internal/ics"
	"taskcal/internal/model"
)

func newItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Create and edit tasks and lists",
	}

	add := &cobra.Command{
		Use:     "add <text>...",
		Short:   "Create a task or list",
		Example: `  taskcal item add --user u1 --list <list-id> Pay rent 2025-08-25 every 2 weeks`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runItemAdd,
	}
	add.Flags().String("kind", string(model.KindTask), "item kind: task or list")
	add.Flags().String("list", "", "containing list id for tasks")
	add.Flags().Bool("global", false, "make the item visible to every user")
	add.Flags().Bool("first-date-only", false, "only use the first date found in the text")

	edit := &cobra.Command{
		Use:   "edit <item-id> <text>...",
		Short: "Replace the text of an item",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runItemEdit,
	}

	imp := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Create tasks from the events of an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemImport,
	}
	imp.Flags().String("list", "", "containing list id for the imported tasks")

	cmd.AddCommand(add, edit, imp)
	return cmd
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := model.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	listID, _ := cmd.Flags().GetString("list")
	global, _ := cmd.Flags().GetBool("global")
	firstOnly, _ := cmd.Flags().GetBool("first-date-only")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	it, err := a.store.CreateItem(cmd.Context(), model.Item{
		Kind:          kind,
		OwnerID:       user,
		ListID:        listID,
		Global:        global,
		Text:          strings.Join(args, " "),
		FirstDateOnly: firstOnly,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", it.Kind, it.ID)
	return nil
}

func runItemEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.UpdateItemText(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
	return nil
}

func runItemImport(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	listID, _ := cmd.Flags().GetString("list")

	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	events, err := ics.ParseEvents(body)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, ev := range events {
		it, err := a.store.CreateItem(cmd.Context(), model.Item{
			Kind:    model.KindTask,
			OwnerID: user,
			ListID:  listID,
			Text:    ev.ItemText(),
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", ev.UID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "task %s %q\n", it.ID, it.Text)
	}
	return nil
}
