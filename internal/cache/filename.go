package cache

import "regexp"

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	hostPrefix   = regexp.MustCompile(`^[a-zA-Z0-9\-_]+\.[a-zA-Z]{2,}`)
	unsafeRune   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	underscores  = regexp.MustCompile(`_+`)
)

// Filename maps any key to a legal file name. URL-like keys lose their scheme
// and leading host, every rune outside [a-zA-Z0-9_-] becomes '_', and runs of
// '_' collapse to one. It never fails.
//
// A key starting with a dotted token such as "main.cpp:" loses that token too,
// so path-like keys that differ only in their first segment share a file.
func Filename(key string) string {
	name := schemePrefix.ReplaceAllString(key, "")
	name = hostPrefix.ReplaceAllString(name, "")
	name = unsafeRune.ReplaceAllString(name, "_")
	name = dotToUnderscore(name)
	name = underscores.ReplaceAllString(name, "_")
	return name + entryExt
}

func dotToUnderscore(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '.' {
			b[i] = '_'
		}
	}
	return string(b)
}
