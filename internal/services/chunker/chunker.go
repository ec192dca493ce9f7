package chunker

import (
	"strings"
	"unicode/utf8"
)

// Default splitting parameters, matching the ingestion config defaults.
const (
	DefaultTargetSize       = 5000
	DefaultMinBreakFraction = 0.3
)

// Chunker splits raw document text into bounded, semantically-aligned
// segments. Stateless: output depends only on input text and parameters.
type Chunker struct {
	targetSize       int
	minBreakFraction float64
}

// New creates a Chunker. Non-positive targetSize and out-of-range
// minBreakFraction fall back to the defaults.
func New(targetSize int, minBreakFraction float64) *Chunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if minBreakFraction <= 0 || minBreakFraction >= 1 {
		minBreakFraction = DefaultMinBreakFraction
	}
	return &Chunker{
		targetSize:       targetSize,
		minBreakFraction: minBreakFraction,
	}
}

// Split breaks text into chunks of at most targetSize bytes. Within each
// window it prefers, in order, the last paragraph break, the last sentence
// terminator, and the last fenced-code-block marker; a break is accepted only
// if it falls after minBreakFraction of the window, otherwise the window
// boundary is used as a hard cut. The trailing partial window is emitted
// as-is. Chunks are trimmed of surrounding whitespace; empty segments are
// dropped.
func (c *Chunker) Split(text string) []string {
	return Split(text, c.targetSize, c.minBreakFraction)
}

// Split is the raw splitting algorithm behind Chunker.Split.
func Split(text string, targetSize int, minBreakFraction float64) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	minBreak := int(float64(targetSize) * minBreakFraction)

	for start < len(text) {
		end := start + targetSize
		if end >= len(text) {
			end = len(text)
		} else {
			window := text[start:end]

			// Prefer natural boundaries, searched back-to-front.
			lastBreak := lastIndexAny(window,
				"\n\n", // paragraph break
				". ",   // sentence terminator
				"```",  // fenced code block marker
			)

			if lastBreak > minBreak {
				end = start + lastBreak + 1
			} else {
				// Hard cut: never split inside a multi-byte rune.
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
				if end == start {
					end = start + targetSize
				}
			}
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
	}

	return chunks
}

// lastIndexAny returns the largest last-occurrence index among the given
// separators, or -1 if none occurs.
func lastIndexAny(s string, seps ...string) int {
	best := -1
	for _, sep := range seps {
		if idx := strings.LastIndex(s, sep); idx > best {
			best = idx
		}
	}
	return best
}
