package patch

import (
	"regexp"
	"strconv"
	"strings"
)

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// Tokens splits a data path such as "children[0].name" into
// ["children", "0", "name"].
func Tokens(path string) []string {
	if path == "" {
		return nil
	}
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			tokens = append(tokens, path[i+1:i+end])
			i += end
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return tokens
}

// FromTokens is the inverse of Tokens: numeric tokens become row indices.
func FromTokens(tokens []string) string {
	path := ""
	for _, t := range tokens {
		if isIndex(t) {
			path = Index(path, mustAtoi(t))
			continue
		}
		path = Join(path, t)
	}
	return path
}

func isIndex(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Pointer converts a data path into an RFC 6901 JSON pointer.
func Pointer(path string) string {
	tokens := Tokens(path)
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(escapeToken(t))
	}
	return b.String()
}

// PathFromPointer converts a JSON pointer back into a data path.
func PathFromPointer(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	var b strings.Builder
	for i, t := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		t = unescapeToken(t)
		if _, err := strconv.Atoi(t); err == nil && i > 0 {
			b.WriteString("[" + t + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(t)
	}
	return b.String()
}

// Join appends key to a data path prefix.
func Join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// Index appends a row index to a data path.
func Index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// StripIndices removes every [n] segment from a data path.
func StripIndices(path string) string {
	return indexPattern.ReplaceAllString(path, "")
}

// IsDescendant reports whether path lies strictly below parent.
func IsDescendant(path, parent string) bool {
	if parent == "" {
		return path != ""
	}
	if len(path) <= len(parent) || !strings.HasPrefix(path, parent) {
		return false
	}
	next := path[len(parent)]
	return next == '.' || next == '['
}

// RowIndexAfter returns the index directly following parent in path,
// e.g. 2 for ("grid[2].name", "grid").
func RowIndexAfter(path, parent string) (int, bool) {
	if !IsDescendant(path, parent) || path[len(parent)] != '[' {
		return 0, false
	}
	rest := path[len(parent)+1:]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// TrailingIndex splits "grid[3]" into ("grid", 3, true).
func TrailingIndex(path string) (string, int, bool) {
	if !strings.HasSuffix(path, "]") {
		return path, 0, false
	}
	open := strings.LastIndexByte(path, '[')
	if open < 0 {
		return path, 0, false
	}
	n, err := strconv.Atoi(path[open+1 : len(path)-1])
	if err != nil {
		return path, 0, false
	}
	return path[:open], n, true
}

func escapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func unescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
