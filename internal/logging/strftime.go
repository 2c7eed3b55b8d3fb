package logging

import (
	"strings"
	"time"
)

// strftime directive to Go reference-time layout, covering the handful of
// verbs a logfile-name pattern actually needs (spec.md §6 "filename is a
// strftime pattern expanded at startup").
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'j': "002",
	'%': "%",
}

// ExpandStrftime renders pattern against t, substituting the directives in
// strftimeDirectives and passing every other byte through unchanged.
func ExpandStrftime(pattern string, t time.Time) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i+1 >= len(pattern) {
			b.WriteByte(pattern[i])
			continue
		}
		verb := pattern[i+1]
		layout, ok := strftimeDirectives[verb]
		if !ok {
			b.WriteByte(pattern[i])
			continue
		}
		if verb == '%' {
			b.WriteByte('%')
		} else {
			b.WriteString(t.Format(layout))
		}
		i++
	}
	return b.String()
}
