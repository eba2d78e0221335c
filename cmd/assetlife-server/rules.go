package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/assetlife/server/internal/assetlife/lifecycle"
)

func newRulesCmd(a *app) *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Inspect transition rules",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Load and validate a rules file, then print its edges",
		Long: "Loads the given file (or --rules-file, or the built-in table when " +
			"neither is set), validates it, and prints every allowed edge and the guards a file may use.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.RulesFile
			if len(args) == 1 {
				path = args[0]
			}
			rs, err := lifecycle.LoadRulesFile(path)
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), rs)
		},
	})
	return rules
}

func printRules(w io.Writer, rs *lifecycle.RuleSet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tGUARDS")
	list := rs.Rules()
	for _, r := range list {
		guards := "-"
		if len(r.Guards) > 0 {
			guards = strings.Join(r.Guards, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.From, r.To, guards)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d edges\nknown guards: %s\n", len(list), strings.Join(lifecycle.GuardNames(), ", "))
	return err
}
