// Package workflow drives plaque records through the processing stages.
//
// The Manager loads the active batch, walks its non-terminal records in
// position order and hands each one to the registered stage handlers
// (normalize, search, resolve), persisting the record after every
// transition. Component failures become record failures and the loop moves
// on; quota exhaustion stops dispatch for the batch; only store failures,
// configuration errors and cancellation end a run with an error.
//
// Every run produces a Summary that is logged, exported to Prometheus and
// published through notifications. Each batch also gets its own JSON log
// file under <log_dir>/batches.
package workflow
