// Package records persists match records, their batches and search quota
// windows in SQLite.
//
// Every plaque gets exactly one MatchRecord, keyed by its plaque ID and
// assigned at ingest to one batch for life. Writes go through Record.Validate
// so a record on disk always satisfies its invariants; schema CHECK
// constraints back that up. Quota windows live in the same database so a
// single file captures everything a resumed run needs.
package records
