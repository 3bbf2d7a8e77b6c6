package helpers

import (
	"errors"
	"fmt"
	"strings"
)

// GetSplitPart returns the index-th part of target split by separate
func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// SafeFileName maps an identifier to a file name that cannot escape the
// output directory. Reserved bytes, '%' itself, and a leading or trailing
// dot or space are percent-encoded, so distinct ids never share a name.
func SafeFileName(id string) string {
	var b strings.Builder
	last := len(id) - 1
	for i := 0; i < len(id); i++ {
		c := id[i]
		edge := (i == 0 || i == last) && (c == '.' || c == ' ')
		if edge || reservedByte(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func reservedByte(c byte) bool {
	switch c {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '%':
		return true
	}
	return c < 0x20 || c == 0x7f
}
