// Package daemon coordinates the long-running plaques2gallery process.
//
// It wires configuration, the record store, the quota counter, and the
// workflow manager into a single lifecycle with flock-based locking so two
// processes never drive the same state directory. One-shot runs and the
// watch loop both go through the lock. The watch loop ingests plaques as
// they land in the plaques directory, reruns the workflow, and sleeps until
// the next quota window when the search budget is spent.
//
// Keep orchestration logic here: individual pipeline steps live in their
// own packages while the daemon focuses on startup, shutdown, and scheduling.
package daemon
