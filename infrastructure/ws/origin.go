package ws

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open a session.
// "*" allows every origin. Requests without an Origin header are not
// browser requests and are accepted.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewOriginPolicy(origins []string) (OriginPolicy, []string) {
	policy := OriginPolicy{allowed: make(map[string]struct{})}
	var invalid []string
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			policy.allowAll = true
		default:
			normalized, ok := normalizeOrigin(trimmed)
			if !ok {
				invalid = append(invalid, origin)
				continue
			}
			policy.allowed[normalized] = struct{}{}
		}
	}
	return policy, invalid
}

func (p OriginPolicy) Check(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	_, exists := p.allowed[normalized]
	return exists
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
