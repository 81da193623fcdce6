// Package ocr extracts structured receipt data from uploaded documents via a
// hosted vision API, with a local text-layer fast path for digital PDFs.
package ocr
