package main

import (
	"fmt"

	"github.com/danmuck/postconfctl/cmd/postconfctl/ui"
	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/spf13/cobra"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	var (
		name   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the effective value of a parameter and whether main.cf sets it",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.open("")
			if err != nil {
				return err
			}
			defer env.close()

			state, err := postconf.Lookup(cmd.Context(), env.exec, name)
			if err != nil {
				return err
			}
			explicit, err := env.exec.Match(cmd.Context(), postconf.ExistencePattern(name), postconf.MainCFPath)
			if err != nil {
				return fmt.Errorf("%w: %w", postconf.ErrQuery, err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					postconf.State
					InMainCF bool   `json:"in_main_cf"`
					Target   string `json:"target"`
				}{state, explicit, env.target})
			}

			source := "default"
			if explicit {
				source = "main.cf"
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), ui.KeyValues("",
				ui.KV("name", state.Name),
				ui.KV("value", state.RawValue),
				ui.KV("source", source),
				ui.KV("target", ui.Muted(env.target)),
			))
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Parameter name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
