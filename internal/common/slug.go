package common

import "strings"

// Slugify converts a display name into a filesystem-safe slug used for
// screenshot, page source, and forensic log filenames. Runs of
// non-alphanumeric characters collapse into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "target"
	}
	return slug
}
