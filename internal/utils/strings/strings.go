package strings

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// WrapString - wraps the text by words to the lines not longer than maxLength runes. The words that are longer
// than maxLength are split. Existing line breaks are kept
func WrapString(v string, maxLength int) string {
	if maxLength <= 0 {
		return v
	}
	lines := strings.Split(wordwrap.WrapString(v, uint(maxLength)), "\n")
	res := make([]string, 0, len(lines))
	for _, line := range lines {
		runes := []rune(line)
		for len(runes) > maxLength {
			res = append(res, string(runes[:maxLength]))
			runes = runes[maxLength:]
		}
		res = append(res, string(runes))
	}
	return strings.Join(res, "\n")
}
