package anubis

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// introspectEndpoint joins the configured path onto the base URL. An
// absolute path wins over the base, which lets deployments point straight at
// a gateway route.
func introspectEndpoint(baseURL, path string) string {
	baseURL = strings.TrimSpace(baseURL)
	path = strings.TrimSpace(path)

	if ref, err := url.Parse(path); err == nil && ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || path == "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	return base.JoinPath(path).String()
}

// tokenCacheKey keeps raw bearer tokens out of the principal cache.
func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "anubis:principal:" + hex.EncodeToString(sum[:])
}

// tripsBreaker counts only transport errors, 429s and 5xx toward opening the
// circuit; a rejected token is a healthy answer.
func tripsBreaker(err error) bool {
	return errors.Is(err, errAnubisTransient)
}
