package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestShouldTraceRequest(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{method: http.MethodGet, path: "/healthz", want: false},
		{method: http.MethodGet, path: "/HEALTHZ/", want: false},
		{method: http.MethodOptions, path: "/v1/leagues/demo-draft-2026/draft", want: false},
		{method: http.MethodGet, path: "/v1/leagues/demo-draft-2026/draft", want: true},
		{method: http.MethodPost, path: "/v1/internal/jobs/draft-sweep", want: true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := shouldTraceRequest(req); got != tc.want {
			t.Fatalf("shouldTraceRequest(%s %s) = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}
