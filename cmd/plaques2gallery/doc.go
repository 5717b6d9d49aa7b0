// Command plaques2gallery turns photographed museum plaques into a gallery
// of artwork images.
//
// The CLI runs the batch pipeline (`run`, `watch`), ingests plaque photos
// (`ingest`), and inspects or repairs the persisted record state (`status`,
// `list`, `show`, `batches`, `quota`, `retry`). `export` writes the gallery
// spreadsheet, `health` runs the preflight checks without processing
// anything, and `logs` reads the JSON log file. Commands load configuration
// once through commandContext; the `config` subcommands load it themselves.
package main
