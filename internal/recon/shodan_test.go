package recon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFindWebsiteServersAggregatesByIP(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"matches": [
				{"ip_str": "1.2.3.4", "org": "Acme CDN", "port": 80,
				 "location": {"country_name": "Germany", "city": "Berlin"},
				 "hostnames": ["edge1.example.com"]},
				{"ip_str": "1.2.3.4", "org": "Acme CDN", "port": 443,
				 "location": {"country_name": "Germany", "city": "Berlin"},
				 "hostnames": ["edge1.example.com"]},
				{"ip_str": "5.6.7.8", "org": "Other Host", "port": 22,
				 "location": {"country_name": "France", "city": "Paris"},
				 "hostnames": []}
			],
			"total": 3
		}`))
	}))
	defer srv.Close()

	sh := NewShodan("test-key").WithBaseURL(srv.URL)
	raw, err := sh.FindWebsiteServers(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotQuery != "hostname:example.com" {
		t.Errorf("Expected hostname filter query, got %q", gotQuery)
	}

	var servers []shodanServer
	if err := json.Unmarshal([]byte(raw), &servers); err != nil {
		t.Fatalf("Expected JSON array, got %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("Expected 2 distinct servers, got %d", len(servers))
	}
	if servers[0].IP != "1.2.3.4" || len(servers[0].Ports) != 2 {
		t.Errorf("Expected merged ports for first server, got %+v", servers[0])
	}
	if servers[0].Country != "Germany" || servers[0].City != "Berlin" {
		t.Errorf("Expected location fields, got %+v", servers[0])
	}
	if servers[1].IP != "5.6.7.8" || servers[1].Organization != "Other Host" {
		t.Errorf("Expected second server preserved, got %+v", servers[1])
	}
}

func TestFindWebsiteServersHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sh := NewShodan("bad-key").WithBaseURL(srv.URL)
	if _, err := sh.FindWebsiteServers(context.Background(), "example.com"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestFindWebsiteServersMissingKey(t *testing.T) {
	sh := NewShodan("")
	if _, err := sh.FindWebsiteServers(context.Background(), "example.com"); err == nil {
		t.Error("Expected error when API key is unset")
	}
}
