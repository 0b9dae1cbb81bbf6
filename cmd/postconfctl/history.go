package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/postconfctl/cmd/postconfctl/ui"
	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		name   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded parameter changes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.open("")
			if err != nil {
				return err
			}
			defer env.close()
			if env.journal == nil {
				return errors.New("no journal configured (set [journal] path or --journal)")
			}

			entries, err := env.journal.List(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("no recorded changes"))
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				mode := ""
				if e.CheckMode {
					mode = "check"
				}
				rows = append(rows, []string{
					e.At.Format(time.RFC3339),
					e.Target,
					e.Name,
					string(e.State),
					quote(e.Previous),
					quote(e.Value),
					mode,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.Table(
				[]string{"TIME", "TARGET", "NAME", "STATE", "PREVIOUS", "VALUE", "MODE"},
				rows,
			))
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Only show this parameter")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func quote(s string) string {
	if strings.TrimSpace(s) != s || s == "" {
		return fmt.Sprintf("%q", s)
	}
	return s
}
