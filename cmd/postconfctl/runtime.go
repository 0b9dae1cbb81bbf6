package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/postconfctl/internal/config"
	"github.com/danmuck/postconfctl/internal/journal"
	"github.com/danmuck/postconfctl/internal/observability"
	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/danmuck/postconfctl/internal/tools"
	"github.com/rs/zerolog/log"
)

type rootOptions struct {
	configPath      string
	debug           bool
	host            string
	journalPath     string
	metricsTextfile string
}

// runtimeEnv is everything one command needs to talk to postconf.
type runtimeEnv struct {
	cfg     config.Config
	target  string
	exec    postconf.Executor
	matcher postconf.Matcher
	journal *journal.Journal
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	// The default path is optional; an explicit --config must exist.
	return config.LoadConfig(o.configPath, o.configPath == config.DefaultPath)
}

func (o *rootOptions) open(matchOverride string) (*runtimeEnv, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	applyOverrides(&cfg, o, matchOverride)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	matcher, err := postconf.ParseMatcher(cfg.Postconf.Match)
	if err != nil {
		return nil, err
	}

	runner, target := newRunner(cfg.SSH)
	env := &runtimeEnv{
		cfg:     cfg,
		target:  target,
		exec:    postconf.NewPostconfToolWithRunner(cfg.Postconf.Binary, cfg.Postconf.Grep, runner),
		matcher: matcher,
	}

	if path := strings.TrimSpace(cfg.Journal.Path); path != "" {
		j, err := journal.Open(path, target)
		if err != nil {
			return nil, err
		}
		env.journal = j
	}

	log.Debug().Str("target", target).Str("match", cfg.Postconf.Match).Msg("postconfctl runtime ready")
	return env, nil
}

func (e *runtimeEnv) observers(checkMode bool) []postconf.Observer {
	obs := []postconf.Observer{observability.ReconcileMetrics{CheckMode: checkMode}}
	if e.journal != nil {
		obs = append(obs, e.journal)
	}
	return obs
}

func (e *runtimeEnv) close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("journal close failed")
		}
	}
}

func (e *runtimeEnv) flushMetrics() {
	path := strings.TrimSpace(e.cfg.Metrics.Textfile)
	if path == "" {
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("metrics textfile write failed")
	}
}

func applyOverrides(cfg *config.Config, o *rootOptions, matchOverride string) {
	if host := strings.TrimSpace(o.host); host != "" {
		user, addr := tools.ParseTarget(host)
		cfg.SSH.Host = addr
		cfg.SSH.Port = ""
		if user != "" {
			cfg.SSH.User = user
		}
	}
	if strings.TrimSpace(o.journalPath) != "" {
		cfg.Journal.Path = o.journalPath
	}
	if strings.TrimSpace(o.metricsTextfile) != "" {
		cfg.Metrics.Textfile = o.metricsTextfile
	}
	if strings.TrimSpace(matchOverride) != "" {
		cfg.Postconf.Match = matchOverride
	}
}

// newRunner picks ssh when a host is configured and reports a target label
// for the journal.
func newRunner(cfg config.SSHConfig) (tools.CommandRunner, string) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return tools.ExecRunner{}, "local"
	}
	runner := tools.SSHRunner{
		Host:                        host,
		Port:                        cfg.Port,
		User:                        cfg.User,
		KeyPath:                     cfg.KeyPath,
		KnownHostsPath:              cfg.KnownHosts,
		InsecureSkipHostKeyChecking: cfg.InsecureSkipHostKeyChecking,
		Timeout:                     cfg.Timeout.Duration,
	}
	return runner, fmt.Sprintf("%s@%s", cfg.User, host)
}
