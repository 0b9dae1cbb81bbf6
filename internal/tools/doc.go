// Package tools provides command execution helpers shared by the postconf
// executor and the seed adapter.
//
// Ownership boundary:
// - local command execution
//
// - remote command execution over ssh
package tools
