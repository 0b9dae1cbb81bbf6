package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/spf13/cobra"
)

var errApplyFailed = errors.New("apply failed")

type applyOptions struct {
	name      string
	value     string
	state     string
	checkMode bool
	match     string
}

type failure struct {
	Changed bool   `json:"changed"`
	Failed  bool   `json:"failed"`
	Message string `json:"msg"`
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	opts := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Bring one main.cf parameter to the requested state",
		Example: `  postconfctl apply --name mailname --value mail.example.com
  postconfctl apply --name body_checks --state absent
  postconfctl apply --name message_drop_headers --value X-our-header --state append --check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "Parameter name")
	cmd.Flags().StringVar(&opts.value, "value", "", "Parameter value (empty sets an explicit empty value)")
	cmd.Flags().StringVar(&opts.state, "state", string(postconf.IntentSet), "present|absent|append|remove")
	cmd.Flags().BoolVar(&opts.checkMode, "check", false, "Report what would change without running postconf -e/-X")
	cmd.Flags().StringVar(&opts.match, "match", "", "Multi-value matching: substring|token (overrides config)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runApply(cmd *cobra.Command, root *rootOptions, opts *applyOptions) error {
	out := cmd.OutOrStdout()

	intent, err := postconf.ParseIntent(opts.state)
	if err != nil {
		return writeFailure(out, fmt.Errorf("parameter %s: %w", opts.name, err))
	}

	env, err := root.open(opts.match)
	if err != nil {
		return err
	}
	defer env.close()
	defer env.flushMetrics()

	r := postconf.NewReconciler(env.exec)
	r.Matcher = env.matcher
	r.DryRun = opts.checkMode
	r.Observers = env.observers(opts.checkMode)

	res, err := r.Reconcile(cmd.Context(), postconf.Request{Name: opts.name, Value: opts.value, Intent: intent})
	if err != nil {
		return writeFailure(out, err)
	}
	return writeJSON(out, res)
}

// writeFailure prints the machine-readable failure and returns an error so
// the process exits non-zero.
func writeFailure(w io.Writer, err error) error {
	if werr := writeJSON(w, failure{Failed: true, Message: err.Error()}); werr != nil {
		return werr
	}
	return errors.Join(errApplyFailed, err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
