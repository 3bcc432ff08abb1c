package bundler

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

const maxSlugLength = 200

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~-]*$`)

// ValidateSlug checks that slug is a non-empty URL-safe token usable as a
// file name: unreserved URL characters only, starting with a letter or digit,
// and no ".." sequence.
func ValidateSlug(slug string) error {
	switch {
	case slug == "":
		return perrors.New(perrors.CodeInvalidInput, "slug is empty")
	case len(slug) > maxSlugLength:
		return perrors.WithMetadata(perrors.CodeInvalidInput, "slug is too long", map[string]string{"slug": slug})
	case !slugPattern.MatchString(slug), strings.Contains(slug, ".."):
		return perrors.WithMetadata(perrors.CodeInvalidInput, "slug is not a URL-safe token", map[string]string{"slug": slug})
	}
	return nil
}

// Slugify derives a slug from a post title: accents are folded away, the
// result is lowercased, and every run of other characters becomes one hyphen.
//
//	Slugify("Héllo, Wörld!") == "hello-world"
func Slugify(title string) string {
	// Chained transformers carry state, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
