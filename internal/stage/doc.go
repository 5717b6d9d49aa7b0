// Package stage defines the contract between the workflow manager and the
// pipeline stages (normalize, search, resolve).
package stage
