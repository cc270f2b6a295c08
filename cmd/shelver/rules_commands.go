package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shelver/internal/logging"
	"shelver/internal/rules"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage filing rules",
	}

	storeFor := func() (*rules.Store, error) {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		return rules.NewStore(cfg.Paths.RulesFile, logging.NewNop()), nil
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFor()
			if err != nil {
				return err
			}
			all, err := store.Load()
			if err != nil {
				return err
			}
			if listJSON {
				return writeJSON(cmd, jsonList(all))
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintf(out, "No rules defined in %s\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(all))
			for _, rule := range all {
				rows = append(rows, []string{
					rule.Label(),
					strconv.Itoa(rule.Priority),
					yesNo(rule.Enabled),
					truncate(rule.Prompt, 48),
					rule.Destination,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Priority", "Enabled", "Prompt", "Destination"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	var dest string
	var priority int
	addCmd := &cobra.Command{
		Use:   "add <prompt>",
		Short: "Add a rule that files matching documents into a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFor()
			if err != nil {
				return err
			}
			var prio *int
			if cmd.Flags().Changed("priority") {
				prio = &priority
			}
			rule, err := store.Add(strings.Join(args, " "), dest, prio)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s (priority %d) -> %s\n", rule.Label(), rule.Priority, rule.Destination)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination folder (absolute path)")
	addCmd.Flags().IntVarP(&priority, "priority", "p", 0, "Evaluation priority; lower runs first (default: after existing rules)")
	_ = addCmd.MarkFlagRequired("dest")

	removeCmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a rule by id or id prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFor()
			if err != nil {
				return err
			}
			rule, err := store.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %s\n", rule.Label())
			return nil
		},
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := storeFor()
				if err != nil {
					return err
				}
				rule, err := store.SetEnabled(args[0], enabled)
				if err != nil {
					return err
				}
				state := "disabled"
				if rule.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %s\n", rule.Label(), state)
				return nil
			},
		}
	}

	rulesCmd.AddCommand(listCmd, addCmd, removeCmd,
		toggle("enable", "Enable a rule", true),
		toggle("disable", "Disable a rule without deleting it", false),
	)
	return rulesCmd
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
