package seeds

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/rs/zerolog/log"
)

const (
	PostfixSeedID = "seed.postfix"
	ActionGet     = "get"
)

var (
	ErrUnknownAction = errors.New("unknown seed action")
	ErrInvalidArgs   = errors.New("invalid seed arguments")
)

// PostfixSeed exposes main.cf parameter reconciliation as seed actions.
// Reconciliations are serialised: postconf does not lock main.cf, so two
// edits racing through the same agent could lose one of them.
type PostfixSeed struct {
	exec      postconf.Executor
	matcher   postconf.Matcher
	observers []postconf.Observer
	mu        sync.Mutex
}

// NewPostfixSeed builds a seed over the given executor. A nil matcher selects
// substring matching.
func NewPostfixSeed(exec postconf.Executor, matcher postconf.Matcher, observers ...postconf.Observer) *PostfixSeed {
	if matcher == nil {
		matcher = postconf.SubstringMatcher{}
	}
	return &PostfixSeed{
		exec:      exec,
		matcher:   matcher,
		observers: observers,
	}
}

func (s *PostfixSeed) Metadata() SeedMetadata {
	return SeedMetadata{
		ID:          PostfixSeedID,
		Name:        "Postfix main.cf",
		Description: "Manage single main.cf parameters through postconf",
	}
}

func (s *PostfixSeed) Operations() []OperationSpec {
	return []OperationSpec{
		{Name: ActionGet, Description: "read the effective value of a parameter", Idempotent: true},
		{Name: string(postconf.IntentSet), Description: "set a parameter to an exact value", Idempotent: true, Mutating: true},
		{Name: string(postconf.IntentAbsent), Description: "remove a parameter from main.cf", Idempotent: true, Mutating: true},
		{Name: string(postconf.IntentAppend), Description: "append a value to a multi-value parameter", Idempotent: true, Mutating: true},
		{Name: string(postconf.IntentRemove), Description: "remove a value from a multi-value parameter", Idempotent: true, Mutating: true},
	}
}

// Execute dispatches action with args name, value and check_mode.
func (s *PostfixSeed) Execute(ctx context.Context, action string, args map[string]string) (SeedResult, error) {
	act := strings.TrimSpace(action)
	name := strings.TrimSpace(args["name"])
	if name == "" {
		return errorResult("name is required"), fmt.Errorf("%w: name is required", ErrInvalidArgs)
	}

	log.Debug().Str("action", act).Str("param", name).Msg("seeds.PostfixSeed.Execute")
	if act == ActionGet {
		return s.get(ctx, name)
	}

	intent, err := postconf.ParseIntent(act)
	if err != nil || act == "" {
		log.Warn().Str("action", act).Msg("seeds.PostfixSeed.Execute unknown action")
		return errorResult("unknown action: " + act), fmt.Errorf("%w: %s", ErrUnknownAction, act)
	}

	checkMode := false
	if raw := strings.TrimSpace(args["check_mode"]); raw != "" {
		checkMode, err = strconv.ParseBool(raw)
		if err != nil {
			return errorResult("check_mode must be a boolean"), fmt.Errorf("%w: check_mode %q", ErrInvalidArgs, raw)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := postconf.NewReconciler(s.exec)
	r.Matcher = s.matcher
	r.DryRun = checkMode
	r.Observers = s.observers

	res, err := r.Reconcile(ctx, postconf.Request{Name: name, Value: args["value"], Intent: intent})
	if err != nil {
		return errorResult(err.Error()), err
	}
	return SeedResult{
		Status:  "ok",
		Changed: res.Changed,
		Message: res.Message,
		Data:    res,
	}, nil
}

func (s *PostfixSeed) get(ctx context.Context, name string) (SeedResult, error) {
	state, err := postconf.Lookup(ctx, s.exec, name)
	if err != nil {
		return errorResult(err.Error()), err
	}
	return SeedResult{
		Status:  "ok",
		Message: fmt.Sprintf("%s = %s", name, state.RawValue),
		Data:    state,
	}, nil
}

func errorResult(msg string) SeedResult {
	return SeedResult{Status: "error", Message: msg}
}
