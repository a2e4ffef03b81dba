// Package fetchers provides outbound HTTP access to threat-intel feeds and
// the staged-document stores backing scan ingestion.
package fetchers

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// blockedIPRanges contains IP ranges that should never be fetched from.
// This prevents SSRF against internal services and cloud metadata.
var blockedIPRanges = []string{
	"127.0.0.0/8",        // Loopback
	"10.0.0.0/8",         // Private class A
	"172.16.0.0/12",      // Private class B
	"192.168.0.0/16",     // Private class C
	"169.254.0.0/16",     // Link-local (includes AWS metadata 169.254.169.254)
	"100.64.0.0/10",      // Carrier-grade NAT
	"0.0.0.0/8",          // "This" network
	"224.0.0.0/4",        // Multicast
	"240.0.0.0/4",        // Reserved
	"255.255.255.255/32", // Broadcast
	"::1/128",            // IPv6 loopback
	"fc00::/7",           // IPv6 unique local
	"fe80::/10",          // IPv6 link-local
}

var blockedCIDRs []*net.IPNet

func init() {
	for _, cidr := range blockedIPRanges {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err == nil {
			blockedCIDRs = append(blockedCIDRs, ipNet)
		}
	}
}

func isIPBlocked(ip net.IP) bool {
	for _, cidr := range blockedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

var dangerousHosts = []string{
	"localhost",
	"metadata",
	"metadata.google.internal",
	"169.254.169.254",
}

// validateFeedURL checks that a feed URL is safe to fetch. Hostnames are
// resolved and every address checked, failing closed on DNS errors.
func validateFeedURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	hostname := strings.ToLower(parsed.Hostname())
	for _, blocked := range dangerousHosts {
		if hostname == blocked {
			return fmt.Errorf("blocked hostname: %s", hostname)
		}
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if isIPBlocked(ip) {
			return fmt.Errorf("blocked IP address: %s", hostname)
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("DNS lookup failed for %s: %w", hostname, err)
	}
	for _, ip := range ips {
		if isIPBlocked(ip) {
			return fmt.Errorf("blocked IP address: %s resolves to %s", hostname, ip)
		}
	}
	return nil
}

// FeedFetcher downloads threat-intel feed documents over HTTPS with SSRF
// protection. Every request, including redirect hops, is validated.
type FeedFetcher struct {
	client *http.Client
}

// NewFeedFetcher creates a new FeedFetcher.
func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &FeedFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return validateFeedURL(req.URL.String())
			},
		},
	}
}

// Fetch downloads the feed at the given URL. The caller owns the returned
// body.
func (f *FeedFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := validateFeedURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
