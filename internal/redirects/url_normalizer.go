package redirects

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Issue tags attached by NormalizeURL.
const (
	IssueEmpty               = "empty"
	IssueMissingSchemeOrHost = "missing_scheme_or_host"
	IssueUnparseable         = "unparseable"
	IssueDroppedParams       = "dropped_params"
)

// baseFlags apply under every policy. Query keys are sorted, values of a
// repeated key are sorted too.
const baseFlags = purell.FlagLowercaseScheme | purell.FlagRemoveFragment | purell.FlagSortQuery

type queryPair struct {
	key   string
	value string
}

// NormalizeURL canonicalizes raw under p. On failure ok is false and issues
// says why; on success issues holds non-fatal warnings such as dropped_params.
func NormalizeURL(raw string, p Policy) (normalized string, issues []string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", []string{IssueEmpty}, false
	}

	u, err := url.Parse(escapeStrayPercents(raw))
	if err != nil {
		return "", []string{IssueUnparseable + ":" + parseErrorReason(err)}, false
	}
	if u.Scheme == "" || u.Host == "" {
		return "", []string{IssueMissingSchemeOrHost}, false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if p.LowercasePath {
		path = lower(path)
	}
	switch p.TrailingSlash {
	case TrailingSlashAdd:
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
	case TrailingSlashRemove:
		// purell.FlagRemoveTrailingSlash only strips one slash
		if path != "/" && strings.HasSuffix(path, "/") {
			path = strings.TrimRight(path, "/")
			if path == "" {
				path = "/"
			}
		}
	}
	u.Path = path
	u.RawPath = ""

	pairs := parseQueryPairs(u.RawQuery)
	if len(p.ParamAllowlist) > 0 {
		allow := make(map[string]struct{}, len(p.ParamAllowlist))
		for _, k := range p.ParamAllowlist {
			allow[k] = struct{}{}
		}
		var kept []queryPair
		for _, kv := range pairs {
			if _, found := allow[kv.key]; found {
				kept = append(kept, kv)
			}
		}
		if len(kept) != len(pairs) {
			issues = append(issues, IssueDroppedParams)
		}
		pairs = kept
	}
	u.RawQuery = encodeQueryPairs(pairs)
	u.ForceQuery = false

	flags := baseFlags
	if p.LowercaseHost {
		flags |= purell.FlagLowercaseHost
	}
	return purell.NormalizeURL(u, flags), issues, true
}

// escapeStrayPercents rewrites every '%' not starting a valid escape as
// "%25" so the URL parses and the literal percent survives.
func escapeStrayPercents(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// parseQueryPairs splits a raw query into decoded pairs in input order.
// Pairs with a blank value are dropped. Undecodable escapes are kept literally.
func parseQueryPairs(rawQuery string) []queryPair {
	var pairs []queryPair
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key := unescapeQuery(k)
		value := unescapeQuery(v)
		if value == "" {
			continue
		}
		pairs = append(pairs, queryPair{key: key, value: value})
	}
	return pairs
}

func encodeQueryPairs(pairs []queryPair) string {
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}

func unescapeQuery(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return decoded
}

func parseErrorReason(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err.Error()
	}
	return err.Error()
}

// lower folds case with the root locale. Casers keep state, so one per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
