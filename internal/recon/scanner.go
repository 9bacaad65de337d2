// Package recon implements the reconnaissance capabilities: host discovery,
// port scanning, service identification, DNS resolution and Shodan lookups.
package recon

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	protocolPrefix = regexp.MustCompile(`^https?://`)
	pathSuffix     = regexp.MustCompile(`/.*$`)
)

// Scanner wraps the external scanning tools behind a CommandRunner.
type Scanner struct {
	runner CommandRunner
}

func NewScanner(runner CommandRunner) *Scanner {
	return &Scanner{runner: runner}
}

// CheckHostActive probes a single host with a ping scan.
func (s *Scanner) CheckHostActive(ctx context.Context, ipAddress string) (string, error) {
	return s.runner.Run(ctx, "nmap", "-sn", ipAddress)
}

// ScanEntireNetwork discovers the local network from the host's interfaces
// and ping-sweeps it.
func (s *Scanner) ScanEntireNetwork(ctx context.Context) (string, error) {
	network, err := localNetwork()
	if err != nil {
		return "", err
	}
	return s.runner.Run(ctx, "nmap", "-sn", "-n", network)
}

// ResolveWebsite resolves a domain to its IP addresses. Protocol prefixes and
// URL paths are stripped before lookup.
func (s *Scanner) ResolveWebsite(ctx context.Context, website string) (string, error) {
	host := protocolPrefix.ReplaceAllString(strings.TrimSpace(website), "")
	host = pathSuffix.ReplaceAllString(host, "")
	if host == "" {
		return "", fmt.Errorf("no hostname in %q", website)
	}
	return s.runner.Run(ctx, "dig", "+short", host)
}

// ScanTarget scans every port on the target.
func (s *Scanner) ScanTarget(ctx context.Context, ipAddress string) (string, error) {
	return s.runner.Run(ctx, "nmap", "-p-", ipAddress)
}

// ScanPort scans one port on the target.
func (s *Scanner) ScanPort(ctx context.Context, ipAddress, port string) (string, error) {
	return s.runner.Run(ctx, "nmap", "-p", port, ipAddress)
}

// ScanPorts scans a list of ports on the target.
func (s *Scanner) ScanPorts(ctx context.Context, ipAddress string, ports []string) (string, error) {
	if len(ports) == 0 {
		return "", fmt.Errorf("no ports given")
	}
	return s.runner.Run(ctx, "nmap", "-p", strings.Join(ports, ","), ipAddress)
}

// GetRunningServices runs a service/version detection scan on the target.
func (s *Scanner) GetRunningServices(ctx context.Context, ipAddress string) (string, error) {
	return s.runner.Run(ctx, "nmap", "-sV", ipAddress)
}

// localNetwork returns the CIDR of the first non-loopback IPv4 interface.
func localNetwork() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		network := &net.IPNet{IP: ip4.Mask(ipNet.Mask), Mask: ipNet.Mask}
		return network.String(), nil
	}
	return "", fmt.Errorf("no usable IPv4 network interface found")
}
