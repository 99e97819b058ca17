package frontier

import (
	"net/url"
	"strings"
)

// Normalize returns the identity of a URL.
//
// The scheme and host are lowercased, default ports (:80 for http, :443 for
// https) and the fragment are dropped, and a trailing slash is removed so
// that "/guide/" and "/guide" are the same page; the root path becomes
// empty. The query string is kept unless keepQuery is false.
// Unparsable input is returned unchanged.
func Normalize(rawURL string, keepQuery bool) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if u.RawPath != "" {
		u.RawPath = strings.TrimRight(u.RawPath, "/")
	}

	if !keepQuery {
		u.RawQuery = ""
		u.ForceQuery = false
	}

	return u.String()
}
