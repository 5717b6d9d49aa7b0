// Package normalize turns noisy plaque text into a "Title by Artist" query
// using a chat-completions model constrained to a small JSON contract.
package normalize
