// Package seeds owns the seed interfaces served by the postconfctl agent.
//
// Ownership boundary:
// - seed metadata shape
// - seed execution interface
// - local seed registry primitives
// - the postfix seed
package seeds
