// Package resolver extracts the numeric product id from a product page URL
// or from a saved copy of the page's HTML.
package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Error reports a failed product-id resolution, naming the input that was
// searched.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve product id from %q: %s", e.Input, e.Reason)
}

var (
	// og:url content must end in /<digits> for the trailing segment to be a
	// product id.
	ogTrailingID = regexp.MustCompile(`/(\d+)$`)

	// Product links embedded in page markup look like
	// /central-market-<slug>/<id>.
	productFragment = regexp.MustCompile(`(?i)/central-market-[^/\s"]+/(\d+)`)
)

// FromURL returns the product id encoded as the last path segment of a
// product page URL. The segment must be all decimal digits.
func FromURL(raw string) (int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, &Error{Input: raw, Reason: "not a valid URL"}
	}

	var last string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			last = seg
		}
	}
	if last == "" {
		return 0, &Error{Input: raw, Reason: "URL path has no segments"}
	}

	// Atoi alone is too lenient here: it accepts a leading sign, and a
	// segment like "+608890" is not a product id.
	if !allDigits(last) {
		return 0, &Error{Input: raw, Reason: fmt.Sprintf("last path segment %q is not all digits", last)}
	}
	return mustAtoi(last, raw)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// FromHTML searches a saved product page for the product id. The canonical
// og:url meta tag wins; page markup with a /central-market-<slug>/<id>
// fragment is the fallback.
func FromHTML(html string) (int, error) {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		content, ok := doc.Find(`meta[property="og:url"]`).Attr("content")
		if ok {
			if m := ogTrailingID.FindStringSubmatch(content); m != nil {
				return mustAtoi(m[1], content)
			}
		}
	}

	if m := productFragment.FindStringSubmatch(html); m != nil {
		return mustAtoi(m[1], m[0])
	}

	return 0, &Error{Input: "html snapshot", Reason: "no og:url meta tag or product link fragment found"}
}

// mustAtoi converts a digit run that already matched \d+. Overflow is the
// only way it can still fail.
func mustAtoi(digits, source string) (int, error) {
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &Error{Input: source, Reason: "product id out of range"}
	}
	return id, nil
}
