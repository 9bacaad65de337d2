package exploit

import (
	"context"
	"fmt"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/domain"
)

// RegisterCapabilities registers the exploitation capability surface against
// the Metasploit client.
func RegisterCapabilities(r *capability.Registry, c *Client) {
	register := func(name string, invoke capability.InvokeFunc) {
		r.Register(capability.Descriptor{
			Name:   name,
			Domain: capability.DomainExploitation,
			Invoke: invoke,
		})
	}

	register("find_vulnerabilities_for_service", func(ctx context.Context, args *domain.Args) (string, error) {
		service := args.String("service_name")
		if service == "" {
			return "", fmt.Errorf("missing required argument %q", "service_name")
		}
		return c.FindExploits(ctx, service)
	})

	register("run_exploit", func(ctx context.Context, args *domain.Args) (string, error) {
		name := args.String("exploit_name")
		if name == "" {
			return "", fmt.Errorf("missing required argument %q", "exploit_name")
		}
		target := args.String("target_ip")
		if target == "" {
			return "", fmt.Errorf("missing required argument %q", "target_ip")
		}

		options := make(map[string]any)
		if v, ok := args.Get("options"); ok {
			opts, ok := v.(*domain.Args)
			if !ok {
				return "", fmt.Errorf("argument %q must be a dict", "options")
			}
			for _, key := range opts.Keys() {
				val, _ := opts.Get(key)
				options[key] = val
			}
		}
		return c.RunExploit(ctx, name, target, options)
	})

	register("get_sessions", func(ctx context.Context, _ *domain.Args) (string, error) {
		return c.Sessions(ctx)
	})

	register("execute_command", func(ctx context.Context, args *domain.Args) (string, error) {
		id, ok := args.Int("session_id")
		if !ok {
			return "", fmt.Errorf("missing required argument %q", "session_id")
		}
		command := args.String("command")
		if command == "" {
			return "", fmt.Errorf("missing required argument %q", "command")
		}
		return c.ExecuteCommand(ctx, id, command)
	})

	register("stop_session", func(ctx context.Context, args *domain.Args) (string, error) {
		id, ok := args.Int("session_id")
		if !ok {
			return "", fmt.Errorf("missing required argument %q", "session_id")
		}
		return c.StopSession(ctx, id)
	})
}
