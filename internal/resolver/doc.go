// Package resolver turns candidate pages into one downloaded artwork image.
//
// Candidates are ordered (trusted domains first by default), rendered through
// a browser.Renderer, and the largest visible image above the configured area
// is downloaded, verified, converted to JPEG and written to a deterministic
// path derived from the plaque ID. When every candidate fails, the returned
// ResolutionFailure names the stage at which the last candidate stopped.
package resolver
