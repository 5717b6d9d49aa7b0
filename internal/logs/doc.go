// Package logs reads the rotating JSON log file written by the pipeline.
//
// Tail returns the last N lines or everything after a byte offset and can
// wait briefly for new output, which is what `plaques2gallery logs --follow`
// polls. Filter and Format decode individual JSON entries so callers can
// narrow output to one plaque, batch, component, or minimum level.
package logs
