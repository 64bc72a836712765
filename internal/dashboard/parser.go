package dashboard

import (
	"strings"

	"paperdash/internal/logger"

	"github.com/tidwall/gjson"
)

const skippedPreviewLen = 140

// SkippedLine 记录一条被丢弃的日志行。
type SkippedLine struct {
	Line    int    `json:"line"`
	Preview string `json:"preview"`
	Reason  string `json:"reason"`
}

// ParseResult is the Line Parser output. Records keep file order.
type ParseResult struct {
	Records []Record      `json:"records"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// NonBlank is the number of non-blank lines the result was built from.
func (p ParseResult) NonBlank() int {
	return len(p.Records) + len(p.Skipped)
}

// ParseLines splits newline-delimited JSON into records. Lines that are not a JSON object are
// skipped with a diagnostic; parsing never fails as a whole.
func ParseLines(text string) ParseResult {
	var res ParseResult
	for idx, line := range strings.Split(text, "\n") {
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}
		lineNo := idx + 1
		if !gjson.Valid(clean) {
			res.Skipped = append(res.Skipped, skipLine(lineNo, clean, "invalid json"))
			continue
		}
		parsed := gjson.Parse(clean)
		if !parsed.IsObject() {
			res.Skipped = append(res.Skipped, skipLine(lineNo, clean, "not a json object"))
			continue
		}
		rec := ParseRecord(parsed)
		rec.Line = lineNo
		res.Records = append(res.Records, rec)
	}
	return res
}

func skipLine(lineNo int, clean, reason string) SkippedLine {
	preview := clean
	if r := []rune(preview); len(r) > skippedPreviewLen {
		preview = string(r[:skippedPreviewLen])
	}
	logger.Warnf("decision log line %d ignored (%s): %s", lineNo, reason, preview)
	return SkippedLine{Line: lineNo, Preview: preview, Reason: reason}
}
