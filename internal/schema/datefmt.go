package schema

import (
	"fmt"
	"strings"
)

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'j': "002",
	'H': "15",
	'M': "04",
	'S': "05",
	'%': "%",
}

// dateLayout converts a strftime-style date format ("%d.%m.%Y") to a Go time
// layout. A format without any '%' is taken to already be a Go layout.
func dateLayout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("date format is required")
	}
	if !strings.Contains(format, "%") {
		return format, nil
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("date format %q ends with a bare %%", format)
		}
		i++
		// %-d and %-m: unpadded.
		if format[i] == '-' && i+1 < len(format) {
			i++
			switch format[i] {
			case 'd':
				b.WriteString("2")
				continue
			case 'm':
				b.WriteString("1")
				continue
			}
			return "", fmt.Errorf("unsupported directive %%-%c in date format %q", format[i], format)
		}
		layout, ok := strftimeDirectives[format[i]]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c in date format %q", format[i], format)
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}
