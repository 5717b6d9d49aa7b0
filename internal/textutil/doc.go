// Package textutil provides text helpers shared by the normalizer and the
// resolver: diacritic folding, whitespace cleanup and deterministic,
// filesystem-safe names derived from plaque IDs.
package textutil
