// Package ingest discovers plaque photographs and records them as pending
// match records, either by scanning the plaques directory or by watching it
// for new files.
package ingest
