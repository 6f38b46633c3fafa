package media

import (
	"regexp"
	"strings"
)

const maxSlugLen = 60

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds the upload filename for a post title: lowercase, runs of
// anything outside [a-z0-9] become one dash, cut to 60 characters, then suffix.
func Filename(title, suffix string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(title), "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	if strings.Trim(slug, "-") == "" {
		slug = "featured-image"
	}
	return slug + suffix
}
