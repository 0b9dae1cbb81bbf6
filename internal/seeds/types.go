package seeds

import "context"

// SeedMetadata is the contract for seed identity and display data.
type SeedMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeedResult is the deterministic execution result shape.
type SeedResult struct {
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
	Message string `json:"msg"`
	Data    any    `json:"data,omitempty"`
}

// OperationSpec defines one supported seed action.
type OperationSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Idempotent  bool   `json:"idempotent"`
	Mutating    bool   `json:"mutating"`
}

// Seed is the execution boundary the agent dispatches actions to.
type Seed interface {
	Metadata() SeedMetadata
	Operations() []OperationSpec
	Execute(ctx context.Context, action string, args map[string]string) (SeedResult, error)
}
