package recon

import (
	"context"
	"fmt"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/domain"
)

// RegisterCapabilities registers the recon capability surface against the
// given scanner and Shodan client.
func RegisterCapabilities(r *capability.Registry, s *Scanner, shodan *Shodan) {
	register := func(name string, invoke capability.InvokeFunc) {
		r.Register(capability.Descriptor{
			Name:   name,
			Domain: capability.DomainRecon,
			Invoke: invoke,
		})
	}

	register("scan_entire_network", func(ctx context.Context, _ *domain.Args) (string, error) {
		return s.ScanEntireNetwork(ctx)
	})

	register("check_if_host_active", func(ctx context.Context, args *domain.Args) (string, error) {
		ip, err := requireString(args, "ip_address")
		if err != nil {
			return "", err
		}
		return s.CheckHostActive(ctx, ip)
	})

	register("get_ip_of_website", func(ctx context.Context, args *domain.Args) (string, error) {
		website, err := requireString(args, "website")
		if err != nil {
			return "", err
		}
		return s.ResolveWebsite(ctx, website)
	})

	register("scan_target", func(ctx context.Context, args *domain.Args) (string, error) {
		ip, err := requireString(args, "ip_address")
		if err != nil {
			return "", err
		}
		return s.ScanTarget(ctx, ip)
	})

	register("scan_specific_port", func(ctx context.Context, args *domain.Args) (string, error) {
		ip, err := requireString(args, "ip_address")
		if err != nil {
			return "", err
		}
		port, err := requireString(args, "port")
		if err != nil {
			return "", err
		}
		return s.ScanPort(ctx, ip, port)
	})

	register("scan_specific_ports", func(ctx context.Context, args *domain.Args) (string, error) {
		ip, err := requireString(args, "ip_address")
		if err != nil {
			return "", err
		}
		ports, err := requireStringList(args, "ports")
		if err != nil {
			return "", err
		}
		return s.ScanPorts(ctx, ip, ports)
	})

	register("get_running_services", func(ctx context.Context, args *domain.Args) (string, error) {
		ip, err := requireString(args, "ip_address")
		if err != nil {
			return "", err
		}
		return s.GetRunningServices(ctx, ip)
	})

	register("find_website_servers", func(ctx context.Context, args *domain.Args) (string, error) {
		hostname, err := requireString(args, "hostname")
		if err != nil {
			return "", err
		}
		return shodan.FindWebsiteServers(ctx, hostname)
	})
}

func requireString(args *domain.Args, key string) (string, error) {
	v := args.String(key)
	if v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

func requireStringList(args *domain.Args, key string) ([]string, error) {
	v, ok := args.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("argument %q is empty", key)
	}
	return out, nil
}
