package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/postconfctl/internal/auth"
	"github.com/danmuck/postconfctl/internal/seed"
	"github.com/danmuck/postconfctl/internal/seeds"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP agent exposing the postfix seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.open("")
			if err != nil {
				return err
			}
			defer env.close()

			if addr == "" {
				addr = env.cfg.Server.Addr
			}

			registry := seeds.NewRegistry()
			obs := env.observers(false)
			if err := registry.Register(seeds.NewPostfixSeed(env.exec, env.matcher, obs...)); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			agent := seed.Appear(env.cfg.Server.ID, addr, env.cfg.Server.CorsOrigins, registry)
			if token := strings.TrimSpace(env.cfg.Server.Token); token != "" {
				agent.Auth = auth.StaticToken{Token: token}
			} else {
				log.Warn().Str("addr", agent.Addr).Msg("agent action route is unauthenticated")
			}
			log.Info().Str("id", agent.ID).Str("addr", agent.Addr).Str("target", env.target).Msg("agent started")
			return agent.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
