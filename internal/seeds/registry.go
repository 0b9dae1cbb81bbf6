package seeds

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	ErrSeedExists      = errors.New("seed already exists")
	ErrSeedNil         = errors.New("seed is nil")
	ErrInvalidMetadata = errors.New("invalid seed metadata")
)

// seedID is dot, dash or underscore separated lowercase words, e.g. "seed.postfix".
var seedID = regexp.MustCompile(`^[a-z0-9]+([._-][a-z0-9]+)*$`)

// Registry maps seed ids to seeds. It is safe for concurrent use; the agent
// resolves seeds per request.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Seed
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Seed)}
}

// SeedInfo is the listing shape served by the agent.
type SeedInfo struct {
	SeedMetadata
	Operations []OperationSpec `json:"operations"`
}

// ValidateMetadata requires id, name and description, and a well-formed id.
func ValidateMetadata(meta SeedMetadata) error {
	if strings.TrimSpace(meta.Name) == "" || strings.TrimSpace(meta.Description) == "" {
		return fmt.Errorf("%w: %q: name and description are required", ErrInvalidMetadata, meta.ID)
	}
	if !seedID.MatchString(meta.ID) {
		return fmt.Errorf("%w: invalid id %q", ErrInvalidMetadata, meta.ID)
	}
	return nil
}

// Register adds seed under its metadata id. A seed must expose at least one
// operation to be reachable.
func (r *Registry) Register(seed Seed) error {
	if seed == nil {
		return ErrSeedNil
	}
	meta := seed.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if len(seed.Operations()) == 0 {
		return fmt.Errorf("%w: %s has no operations", ErrInvalidMetadata, meta.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[meta.ID]; ok {
		return fmt.Errorf("%w: %s", ErrSeedExists, meta.ID)
	}
	r.items[meta.ID] = seed
	return nil
}

func (r *Registry) Resolve(id string) (Seed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seed, ok := r.items[id]
	return seed, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// List returns every seed with its operations, ordered by id.
func (r *Registry) List() []SeedInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]SeedInfo, 0, len(r.items))
	for _, seed := range r.items {
		list = append(list, SeedInfo{SeedMetadata: seed.Metadata(), Operations: seed.Operations()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
