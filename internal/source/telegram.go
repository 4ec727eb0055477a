package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	telegramHost = "t.me"

	minPartsForTelegramPost = 2
)

var (
	telegramSlugRe   = regexp.MustCompile(`^\w{5,32}$`)
	telegramPostIDRe = regexp.MustCompile(`^\d+$`)
)

// telegramPostEmbedURL maps t.me/<slug>/<id> and t.me/s/<slug>/<id> to the
// embeddable widget page that carries the post text.
func telegramPostEmbedURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host != telegramHost {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] == "s" {
		parts = parts[1:]
	}

	if len(parts) < minPartsForTelegramPost {
		return "", false
	}

	slug, postID := parts[0], parts[1]
	if !telegramSlugRe.MatchString(slug) || !telegramPostIDRe.MatchString(postID) {
		return "", false
	}

	return fmt.Sprintf("https://%s/%s/%s?embed=1", telegramHost, slug, postID), true
}
