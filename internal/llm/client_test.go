package llm

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientForEndpoint_RewritesURL(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := httpClientForEndpoint(srv.URL + "/gemini/")
	if client == nil {
		t.Fatal("expected client for valid endpoint")
	}

	resp, err := client.Get("https://generativelanguage.googleapis.com/v1beta/models/x:generateContent?key=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if gotPath != "/gemini/v1beta/models/x:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "key=abc" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestHTTPClientForEndpoint_Invalid(t *testing.T) {
	if c := httpClientForEndpoint("://bad"); c != nil {
		t.Error("expected nil client for invalid endpoint")
	}
}

func TestPreview(t *testing.T) {
	if got := preview("abcdef", 3); got != "abc..." {
		t.Errorf("preview = %q", got)
	}
	if got := preview("ab", 3); got != "ab" {
		t.Errorf("preview = %q", got)
	}
}
