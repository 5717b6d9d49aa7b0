// Package language maps between the language codes used across the pipeline.
//
// Operators write OCR languages as ISO 639-1 codes, ISO 639-2 codes, or plain
// words ("en+german, ja"); tesseract wants its own traineddata names
// ("eng+deu+jpn"); whatlanggo reports ISO 639-3 codes for detected plaque
// text. TesseractList, ToISO2, ToISO3, and DisplayName convert between them.
package language
