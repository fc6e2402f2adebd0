package node

import (
	"strings"
)

func joinReversed(parts []string, sep string) string {
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
		if i > 0 {
			b.WriteString(sep)
		}
	}

	return b.String()
}
