package ocr

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// minTextLayerLen is the minimum combined text length for the fast path;
// anything shorter is almost certainly a scanned image with stray glyphs.
const minTextLayerLen = 50

// minReadableRatio gates against identity-encoded fonts that decode into
// garbage bytes instead of readable text.
const minReadableRatio = 0.6

// textLayer tries to pull the embedded text layer out of a PDF. It returns
// false for scanned or font-mangled documents so the caller falls back to
// the vision pipeline.
func textLayer(payload []byte) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", false
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", false
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}

	combined := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if !isReadableText(combined) {
		return "", false
	}
	return combined, true
}

// isReadableText checks that the text is long enough and mostly plain
// characters rather than binary garbage.
func isReadableText(text string) bool {
	if len(text) <= minTextLayerLen {
		return false
	}
	return readableRatio(text) > minReadableRatio
}

// readableRatio returns the fraction of characters that are basic ASCII
// letters, digits, whitespace, or common receipt punctuation. A strict ASCII
// check on purpose: unicode.IsLetter matches the accented garbage produced
// by identity-encoded fonts.
func readableRatio(text string) float64 {
	total := 0
	readable := 0
	for _, r := range text {
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
			strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*\t", r) {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
