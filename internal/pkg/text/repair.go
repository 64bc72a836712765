package text

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// mojibakeMarkers appear when UTF-8 bytes were decoded as Windows-1252 somewhere upstream.
var mojibakeMarkers = []string{"Ã", "Â", "â€"}

// Repair 修复被错误按 Windows-1252 解码的 UTF-8 文本；无法确认时原样返回（去除首尾空白）。
func Repair(s string) string {
	clean := strings.TrimSpace(s)
	if clean == "" || !hasMarker(clean) {
		return clean
	}
	raw, err := charmap.Windows1252.NewEncoder().String(clean)
	if err != nil || !utf8.ValidString(raw) {
		return clean
	}
	return raw
}

func hasMarker(s string) bool {
	for _, m := range mojibakeMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
