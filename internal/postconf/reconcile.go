package postconf

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

// Observer is notified once per Reconcile call, after the outcome is known.
type Observer interface {
	Observe(ctx context.Context, req Request, res Result, err error, elapsed time.Duration)
}

// Reconciler brings one parameter to its desired state. It holds no state
// between calls; every call re-reads postconf.
type Reconciler struct {
	Tool      Tool
	Search    Searcher
	Matcher   Matcher
	DryRun    bool
	Observers []Observer
}

// NewReconciler builds a reconciler with substring matching.
func NewReconciler(exec Executor) *Reconciler {
	return &Reconciler{
		Tool:    exec,
		Search:  exec,
		Matcher: SubstringMatcher{},
	}
}

// ExistencePattern matches a main.cf line whose first token is name.
func ExistencePattern(name string) string {
	return "^" + regexp.QuoteMeta(name) + "([[:space:]=]|$)"
}

// Lookup confirms name is known to postconf and reads its effective value.
// Unknown names fail with ErrUnknownParameter; a known name whose value
// cannot be read fails with ErrQuery.
func Lookup(ctx context.Context, tool Tool, name string) (State, error) {
	if !ValidName(name) {
		return State{}, fmt.Errorf("%w: %q: invalid parameter name", ErrUnknownParameter, name)
	}
	if err := tool.Describe(ctx, name); err != nil {
		log.Warn().Str("param", name).Err(err).Msg("postconf.Lookup describe failed")
		return State{}, fmt.Errorf("%w: %q: %w", ErrUnknownParameter, name, err)
	}

	value, err := tool.Value(ctx, name)
	if err != nil {
		log.Warn().Str("param", name).Err(err).Msg("postconf.Lookup value query failed")
		return State{}, fmt.Errorf("%w: %q is known but its value could not be read: %w", ErrQuery, name, err)
	}
	return State{Name: name, RawValue: value}, nil
}

// Reconcile validates the parameter, reads its current value and applies the
// intent's policy. It issues at most one mutating command, and none in
// dry-run mode or when the parameter already satisfies the intent.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	res, err := r.reconcile(ctx, req)
	for _, obs := range r.Observers {
		obs.Observe(ctx, req, res, err, time.Since(started))
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, req Request) (Result, error) {
	name := req.Name
	state, err := Lookup(ctx, r.Tool, name)
	if err != nil {
		return Result{}, err
	}
	current := state.RawValue

	log.Debug().
		Str("param", name).
		Str("state", string(req.Intent)).
		Str("current", current).
		Bool("dry_run", r.DryRun).
		Msg("postconf.Reconcile")

	base := Result{
		Name:     name,
		Intent:   req.Intent,
		Previous: current,
		Value:    current,
		DryRun:   r.DryRun,
	}

	switch req.Intent {
	case IntentSet:
		return r.set(ctx, base, req.Value)
	case IntentAbsent:
		return r.absent(ctx, base)
	case IntentAppend:
		return r.append(ctx, base, req.Value)
	case IntentRemove:
		return r.remove(ctx, base, req.Value)
	default:
		return Result{}, fmt.Errorf("%w: %q for parameter %q", ErrInvalidIntent, req.Intent, name)
	}
}

func (r *Reconciler) set(ctx context.Context, res Result, value string) (Result, error) {
	if res.Previous == value {
		res.Message = fmt.Sprintf("Parameter %s already has value '%s'.", res.Name, value)
		return res, nil
	}
	if err := r.write(ctx, res.Name, value); err != nil {
		return Result{}, err
	}
	res.Changed = true
	res.Value = value
	res.Message = fmt.Sprintf("Parameter %s was set to '%s'.", res.Name, value)
	return res, nil
}

func (r *Reconciler) absent(ctx context.Context, res Result) (Result, error) {
	found, err := r.Search.Match(ctx, ExistencePattern(res.Name), MainCFPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: searching %s for %q: %w", ErrQuery, MainCFPath, res.Name, err)
	}
	if !found {
		res.Message = fmt.Sprintf("%s wasn't found in main.cf.", res.Name)
		return res, nil
	}

	if !r.DryRun {
		if err := r.Tool.DeleteFromFile(ctx, res.Name); err != nil {
			log.Error().Str("param", res.Name).Err(err).Msg("postconf.Reconcile delete failed")
			return Result{}, fmt.Errorf("%w: removing %q from main.cf: %w", ErrMutationFailed, res.Name, err)
		}
	}
	res.Changed = true
	res.Value = ""
	res.Message = fmt.Sprintf("%s was found in main.cf and was removed.", res.Name)
	return res, nil
}

func (r *Reconciler) append(ctx context.Context, res Result, value string) (Result, error) {
	if r.matcher().Contains(res.Previous, value) {
		res.Message = fmt.Sprintf("'%s' already present in parameter %s ('%s').", value, res.Name, res.Previous)
		return res, nil
	}
	next := res.Previous + " " + value
	if err := r.write(ctx, res.Name, next); err != nil {
		return Result{}, err
	}
	res.Changed = true
	res.Value = next
	res.Message = fmt.Sprintf("'%s' added to parameter %s (now '%s').", value, res.Name, next)
	return res, nil
}

func (r *Reconciler) remove(ctx context.Context, res Result, value string) (Result, error) {
	if !r.matcher().Contains(res.Previous, value) {
		res.Message = fmt.Sprintf("'%s' not found in parameter %s ('%s').", value, res.Name, res.Previous)
		return res, nil
	}
	next := r.matcher().Remove(res.Previous, value)
	if err := r.write(ctx, res.Name, next); err != nil {
		return Result{}, err
	}
	res.Changed = true
	res.Value = next
	res.Message = fmt.Sprintf("'%s' removed from parameter %s (now '%s').", value, res.Name, next)
	return res, nil
}

func (r *Reconciler) write(ctx context.Context, name, value string) error {
	if r.DryRun {
		log.Debug().Str("param", name).Str("value", value).Msg("postconf.Reconcile check mode, skipping write")
		return nil
	}
	if err := r.Tool.Set(ctx, name, value); err != nil {
		log.Error().Str("param", name).Err(err).Msg("postconf.Reconcile write failed")
		return fmt.Errorf("%w: setting %q: %w", ErrMutationFailed, name, err)
	}
	log.Info().Str("param", name).Str("value", value).Msg("postconf.Reconcile parameter written")
	return nil
}

func (r *Reconciler) matcher() Matcher {
	if r.Matcher == nil {
		return SubstringMatcher{}
	}
	return r.Matcher
}
