package filesession

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"
)

// sniffLen is the amount of content http.DetectContentType considers.
const sniffLen = 512

// textContentTypes are sniffed types that are text despite lacking a
// "text/" prefix.
var textContentTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
}

// isText reports whether head looks like UTF-8 text. An empty head is text.
func isText(head []byte) bool {
	if len(head) == 0 {
		return true
	}

	// A rune cut off by the sniff window is not an encoding error.
	valid := head
	for i := len(head) - 1; i >= 0 && i > len(head)-utf8.UTFMax; i-- {
		if utf8.RuneStart(head[i]) {
			if !utf8.FullRune(head[i:]) {
				valid = head[:i]
			}
			break
		}
	}
	if !utf8.Valid(valid) {
		return false
	}

	contentType := http.DetectContentType(head)
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.HasPrefix(contentType, "text/") || textContentTypes[contentType]
}

// sniffText reads the start of f without moving its offset and reports
// whether text mode can be honoured for it.
func sniffText(f *os.File) (bool, error) {
	head := make([]byte, sniffLen)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isText(head[:n]), nil
}
