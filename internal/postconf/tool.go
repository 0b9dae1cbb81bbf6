package postconf

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/postconfctl/internal/tools"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBinary = "postconf"
	DefaultGrep   = "grep"
	MainCFPath    = "/etc/postfix/main.cf"
)

// PostconfTool drives the postconf and grep binaries through a runner.
type PostconfTool struct {
	binary string
	grep   string
	runner tools.CommandRunner
}

var _ Executor = PostconfTool{}

// NewPostconfTool uses binaries from PATH on the local host.
func NewPostconfTool() PostconfTool {
	return NewPostconfToolWithRunner(DefaultBinary, DefaultGrep, tools.ExecRunner{})
}

// NewPostconfToolWithRunner uses explicit binaries and runner; empty values
// fall back to defaults.
func NewPostconfToolWithRunner(binary, grep string, runner tools.CommandRunner) PostconfTool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	grep = strings.TrimSpace(grep)
	if grep == "" {
		grep = DefaultGrep
	}
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return PostconfTool{binary: binary, grep: grep, runner: runner}
}

func (p PostconfTool) Describe(ctx context.Context, name string) error {
	_, err := p.exec(ctx, p.binary, "-H", name)
	return err
}

func (p PostconfTool) Value(ctx context.Context, name string) (string, error) {
	out, err := p.exec(ctx, p.binary, "-h", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p PostconfTool) Set(ctx context.Context, name, value string) error {
	_, err := p.exec(ctx, p.binary, "-e", name+"="+value)
	return err
}

func (p PostconfTool) DeleteFromFile(ctx context.Context, name string) error {
	_, err := p.exec(ctx, p.binary, "-X", name)
	return err
}

// Match runs grep -E -q. Exit status 1 means no line matched.
func (p PostconfTool) Match(ctx context.Context, pattern, path string) (bool, error) {
	_, stderr, code, err := p.runner.Run(ctx, p.grep, "-E", "-q", "--", pattern, path)
	switch {
	case err == nil:
		return true, nil
	case code == 1 && len(strings.TrimSpace(string(stderr))) == 0:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s %s: %s", ErrCommandFailed, p.grep, path, failureDetail(stderr, err))
	}
}

// exec treats any stderr output as failure; postconf reports unknown
// parameters as warnings while still exiting 0.
func (p PostconfTool) exec(ctx context.Context, name string, args ...string) (string, error) {
	stdout, stderr, code, err := p.runner.Run(ctx, name, args...)
	if err != nil || len(strings.TrimSpace(string(stderr))) > 0 {
		log.Debug().
			Str("cmd", name).
			Strs("args", args).
			Int32("exit", code).
			Str("stderr", strings.TrimSpace(string(stderr))).
			Msg("postconf.exec failed")
		return "", fmt.Errorf("%w: %s %s: %s", ErrCommandFailed, name, strings.Join(args, " "), failureDetail(stderr, err))
	}
	return string(stdout), nil
}

func failureDetail(stderr []byte, err error) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}
