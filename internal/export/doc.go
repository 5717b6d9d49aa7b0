// Package export writes the resolved gallery as an xlsx workbook: one row
// per plaque with its title, artist, museum, and downloaded image.
package export
