package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/lesezeichen/internal/types"
)

// NormalizeURL drops the fragment, sorts query parameters and trims a
// trailing slash so equivalent URLs compare equal.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// Duplicates returns clusters of bookmarks that point at the same
// normalized URL, across all categories. Clusters are sorted by URL and
// keep the input order inside.
func Duplicates(bms []types.Bookmark) [][]types.Bookmark {
	groups := make(map[string][]types.Bookmark)
	var keys []string
	for _, b := range bms {
		n := NormalizeURL(b.URL)
		if _, ok := groups[n]; !ok {
			keys = append(keys, n)
		}
		groups[n] = append(groups[n], b)
	}
	sort.Strings(keys)

	var out [][]types.Bookmark
	for _, k := range keys {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}
