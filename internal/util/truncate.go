// Package util holds the output hygiene helpers shared by the tools and
// the agent loop: size capping for anything fed back to the model, and
// secret redaction for anything that leaves the process.
package util

import (
	"strings"
)

// TruncateBytes caps tool output at maxBytes before it is appended to the
// transcript. maxBytes <= 0 disables the cap.
func TruncateBytes(input string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(input) <= maxBytes {
		return input, false
	}
	return input[:maxBytes], true
}

// TruncateLinesAndBytes caps a line-oriented tool result (search matches,
// directory listings) by both line count and total bytes, whichever trips
// first.
func TruncateLinesAndBytes(lines []string, maxLines int, maxBytes int) (out []string, truncated bool, byteCount int) {
	if maxLines <= 0 && maxBytes <= 0 {
		return lines, false, len(strings.Join(lines, "\n"))
	}
	for _, line := range lines {
		if maxLines > 0 && len(out) >= maxLines {
			truncated = true
			break
		}
		lineBytes := len(line)
		sep := 0
		if len(out) > 0 {
			sep = 1
		}
		if maxBytes > 0 && byteCount+sep+lineBytes > maxBytes {
			truncated = true
			break
		}
		if sep == 1 {
			byteCount++
		}
		byteCount += lineBytes
		out = append(out, line)
	}
	return out, truncated, byteCount
}

// Preview shortens a tool result for the event stream so renderers can
// show a glimpse without dumping the full payload.
func Preview(text string, maxLines int, maxBytes int) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	trimmed, _, _ := TruncateLinesAndBytes(lines, maxLines, maxBytes)
	return strings.Join(trimmed, "\n")
}
