// File: cmd/presets.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/presets"
)

func newPresetsCmd(a *app) *cobra.Command {
	presetsCmd := &cobra.Command{
		Use:     "presets",
		Aliases: []string{"preset"},
		Short:   "Manage saved message presets",
		Args:    cobra.NoArgs,
	}
	presetsCmd.AddCommand(
		newPresetsListCmd(a),
		newPresetsShowCmd(a),
		newPresetsAddCmd(a),
		newPresetsDeleteCmd(a),
		newPresetsResetCmd(a),
	)
	return presetsCmd
}

func (a *app) presetStore() *presets.Store {
	return presets.Open(a.mgr.Current().Presets.Path, a.logger)
}

func newPresetsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List presets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writePresetTable(cmd.OutOrStdout(), a.presetStore().List())
			return nil
		},
	}
}

func newPresetsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|number>",
		Short: "Show the messages of a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.presetStore().Resolve(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", p.Name)
			fmt.Fprintf(out, "Description: %s\n", p.Description)
			for i, msg := range p.List() {
				// Continuation lines of a multi-line message line up under the first.
				fmt.Fprintf(out, "%3d. %s\n", i+1, strings.ReplaceAll(msg, "\n", "\n     "))
			}
			return nil
		},
	}
}

func newPresetsAddCmd(a *app) *cobra.Command {
	var (
		texts       []string
		file        string
		description string
	)
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save messages as a new preset",
		Example: `  courier presets add "Weekend" -m "Happy Saturday!" -m "Enjoy your weekend"
  courier presets add "Quotes" --file quotes.txt -d "Daily quotes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := gatherMessages(texts, file, "", nil)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return errors.New("a preset needs at least one message: use --message or --file")
			}
			p := presets.New(args[0], msgs, description)
			if err := a.presetStore().Add(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q with %d message(s).\n", p.Name, len(msgs))
			return nil
		},
	}
	addCmd.Flags().StringArrayVarP(&texts, "message", "m", nil, "message to include (repeatable)")
	addCmd.Flags().StringVarP(&file, "file", "f", "", "file of messages separated by blank lines")
	addCmd.Flags().StringVarP(&description, "description", "d", "", "free-text description")
	return addCmd
}

func newPresetsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|number>",
		Aliases: []string{"rm"},
		Short:   "Delete a preset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.presetStore()
			i, err := store.Index(args[0])
			if err != nil {
				return err
			}
			p, err := store.Get(i)
			if err != nil {
				return err
			}
			if err := store.Delete(i); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %q.\n", p.Name)
			return nil
		},
	}
}

func newPresetsResetCmd(a *app) *cobra.Command {
	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace all presets with the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				in := newLineReader(cmd.InOrStdin())
				defer in.Close()
				fmt.Fprint(cmd.OutOrStdout(), "This removes every preset you created. Continue? [y/N] ")
				answer, err := in.ReadLine(cmd.Context())
				if err != nil || !isYes(answer) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := a.presetStore().Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Presets restored to the defaults.")
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return resetCmd
}

func writePresetTable(w io.Writer, items []presets.Preset) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No presets saved.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMESSAGES\tDESCRIPTION")
	for i, p := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, p.Name, len(p.List()), messages.Preview(p.Description, 50))
	}
	tw.Flush()
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
