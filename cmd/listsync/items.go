package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rickgao/listsync/internal/model"
)

func newItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Act on a single item",
	}

	cmd.AddCommand(newItemUncertainCmd(a))
	cmd.AddCommand(newItemMoveCmd(a))
	cmd.AddCommand(newItemDeleteCmd(a))
	cmd.AddCommand(newItemEditCmd(a))

	return cmd
}

func newItemUncertainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uncertain <item-id>",
		Short: "Toggle whether an item is marked uncertain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			s.Actions.OpenMobileAction(s.State, model.Item{ID: id})
			if err := s.Actions.ToggleUncertain(runCtx(cmd), s.State); err != nil {
				return explain(s, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "item %d: uncertain toggled\n", id)
			return nil
		},
	}
}

func newItemMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <item-id> <section-id>",
		Short: "Move an item to another section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			sectionID, err := parseID("section id", args[1])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			s.Actions.OpenMobileAction(s.State, model.Item{ID: id})
			if err := s.Actions.MoveToSection(runCtx(cmd), s.State, sectionID); err != nil {
				return explain(s, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "item %d: moved to section %d\n", id, sectionID)
			return nil
		},
	}
}

func newItemDeleteCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			if name == "" {
				name = fmt.Sprintf("item %d", id)
			}
			s.Actions.OpenMobileAction(s.State, model.Item{ID: id, Name: name})
			if err := s.Actions.DeleteItem(runCtx(cmd), s.State); err != nil {
				return explain(s, err)
			}

			// Declining keeps the target open.
			if s.State.MobileAction() != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %d: deleted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Item name shown in the confirmation prompt")
	return cmd
}

func newItemEditCmd(a *app) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "edit <item-id> --name <name> [--description <text>]",
		Short: "Rename an item and replace its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item id", args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			s.Actions.EditItem(s.State, model.Item{ID: id})
			s.State.SetEditFields(name, description)
			if err := s.Actions.SubmitEditItem(runCtx(cmd), s.State); err != nil {
				return explain(s, err)
			}

			if s.State.Editing() != nil {
				return fmt.Errorf("name must not be empty")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %d: saved\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New item name")
	cmd.Flags().StringVar(&description, "description", "", "New item description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Manage sections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <section-id>...",
		Short: "Delete several sections at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID("section id", arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			s.State.SetSelectMode(true)
			for _, id := range ids {
				s.Actions.ToggleSection(s.State, id)
			}
			selected := len(s.State.SelectedSections())
			if err := s.Actions.DeleteSelectedSections(runCtx(cmd), s.State); err != nil {
				return explain(s, err)
			}

			if s.State.SelectMode() {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sections\n", selected)
			return nil
		},
	})

	return cmd
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Client preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle-helper",
		Short: "Switch the mobile helper between button and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			helper, err := s.Actions.ToggleMobileHelper(runCtx(cmd))
			if err != nil {
				return explain(s, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "mobile helper: %s\n", helper)
			return nil
		},
	})

	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the completion summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}

			stats, err := s.Client.Stats(runCtx(cmd))
			if err != nil {
				return explain(s, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d completed (%d%%)\n", stats.CompletedItems, stats.TotalItems, stats.Percentage)
			return nil
		},
	}
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}
