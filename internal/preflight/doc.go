// Package preflight provides readiness checks for external services
// and filesystem paths that plaques2gallery depends on.
//
// The CLI "health" command runs RunAll and prints every result; "run" and
// "watch" refuse to start when a check fails. Search credentials are only
// checked for presence because any live request would spend quota.
package preflight
