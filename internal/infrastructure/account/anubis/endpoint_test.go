package anubis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/riskibarqy/fantasy-draft/internal/usecase"
)

func TestIntrospectEndpoint(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{base: "https://anubis.example.com/", path: "/v1/introspect", want: "https://anubis.example.com/v1/introspect"},
		{base: "https://anubis.example.com/api", path: "v1/introspect", want: "https://anubis.example.com/api/v1/introspect"},
		{base: "https://anubis.example.com", path: "https://gateway.example.com/introspect", want: "https://gateway.example.com/introspect"},
		{base: " https://anubis.example.com/ ", path: "", want: "https://anubis.example.com"},
	}

	for _, tt := range tests {
		if got := introspectEndpoint(tt.base, tt.path); got != tt.want {
			t.Fatalf("introspectEndpoint(%q, %q)=%q want=%q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestTokenCacheKey(t *testing.T) {
	key := tokenCacheKey("secret-token")
	if strings.Contains(key, "secret-token") || key != tokenCacheKey("secret-token") {
		t.Fatalf("unexpected cache key %q", key)
	}
	if key == tokenCacheKey("other-token") {
		t.Fatalf("distinct tokens must not share a key")
	}
}

func TestTripsBreaker(t *testing.T) {
	transient := fmt.Errorf("%w: %w: status=503", usecase.ErrDependencyUnavailable, errAnubisTransient)
	if !tripsBreaker(transient) {
		t.Fatalf("expected transient failure to trip the breaker")
	}
	if tripsBreaker(fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)) {
		t.Fatalf("rejected token must not trip the breaker")
	}
}
