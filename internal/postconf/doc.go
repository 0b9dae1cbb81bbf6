// Package postconf reconciles a single Postfix main.cf parameter against a
// desired state, using postconf as the only reader and writer of main.cf.
//
// Ownership boundary:
// - request/result shapes and intent parsing
//
// - the reconcile decision and its four intent policies
//
// - the postconf/grep backed executor
//
// Multi-value parameters are treated as one whitespace-joined string. The
// default Matcher tests membership by substring, so "foo" is considered
// present in "foobar". TokenMatcher is the whitespace-token variant.
package postconf
