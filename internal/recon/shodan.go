package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const shodanBaseURL = "https://api.shodan.io"

// Shodan queries the Shodan search API for servers behind a hostname.
type Shodan struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewShodan(apiKey string) *Shodan {
	return &Shodan{
		apiKey:  apiKey,
		baseURL: shodanBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// shodanSearchResponse covers the fields of /shodan/host/search we consume.
type shodanSearchResponse struct {
	Matches []struct {
		IPStr    string `json:"ip_str"`
		Org      string `json:"org"`
		Port     int    `json:"port"`
		Location struct {
			CountryName string `json:"country_name"`
			City        string `json:"city"`
		} `json:"location"`
		Hostnames []string `json:"hostnames"`
	} `json:"matches"`
	Total int `json:"total"`
}

type shodanServer struct {
	IP           string   `json:"ip"`
	Organization string   `json:"organization"`
	Country      string   `json:"country"`
	City         string   `json:"city"`
	Hostnames    []string `json:"hostnames"`
	Ports        []int    `json:"ports"`
}

// FindWebsiteServers searches Shodan for hostname:<hostname> and returns one
// record per distinct IP, with the open ports seen across matches, as a JSON
// array.
func (s *Shodan) FindWebsiteServers(ctx context.Context, hostname string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("shodan API key is not configured")
	}

	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("query", "hostname:"+hostname)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/shodan/host/search?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build shodan request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shodan request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read shodan response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shodan returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed shodanSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode shodan response: %w", err)
	}

	byIP := make(map[string]*shodanServer)
	var order []string
	for _, m := range parsed.Matches {
		if m.IPStr == "" {
			continue
		}
		srv, ok := byIP[m.IPStr]
		if !ok {
			srv = &shodanServer{
				IP:           m.IPStr,
				Organization: m.Org,
				Country:      m.Location.CountryName,
				City:         m.Location.City,
				Hostnames:    m.Hostnames,
			}
			byIP[m.IPStr] = srv
			order = append(order, m.IPStr)
		}
		srv.Ports = append(srv.Ports, m.Port)
	}

	servers := make([]shodanServer, 0, len(order))
	for _, ip := range order {
		srv := byIP[ip]
		sort.Ints(srv.Ports)
		servers = append(servers, *srv)
	}

	out, err := json.Marshal(servers)
	if err != nil {
		return "", fmt.Errorf("failed to encode shodan servers: %w", err)
	}
	return string(out), nil
}

// WithBaseURL points the client at a different API endpoint. Test helper.
func (s *Shodan) WithBaseURL(base string) *Shodan {
	s.baseURL = base
	return s
}
