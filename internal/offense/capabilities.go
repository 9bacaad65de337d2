package offense

import (
	"context"
	"fmt"

	"github.com/aranea-sec/aranea/internal/capability"
	"github.com/aranea-sec/aranea/internal/domain"
)

// RegisterCapabilities registers the offense capability surface against the
// attack manager.
func RegisterCapabilities(r *capability.Registry, m *Manager) {
	register := func(name string, invoke capability.InvokeFunc) {
		r.Register(capability.Descriptor{
			Name:   name,
			Domain: capability.DomainOffense,
			Invoke: invoke,
		})
	}

	register("flood", func(ctx context.Context, args *domain.Args) (string, error) {
		ip := args.String("target_ip")
		if ip == "" {
			return "", fmt.Errorf("missing required argument %q", "target_ip")
		}
		port := args.String("target_port")
		if port == "" {
			return "", fmt.Errorf("missing required argument %q", "target_port")
		}
		return m.Flood(ctx, ip, port)
	})

	// stop_flood accepts either an attack_id or a target_ip/target_port pair.
	register("stop_flood", func(ctx context.Context, args *domain.Args) (string, error) {
		if id := args.String("attack_id"); id != "" {
			return m.StopByID(ctx, id)
		}
		ip := args.String("target_ip")
		port := args.String("target_port")
		if ip == "" || port == "" {
			return "", fmt.Errorf("stop_flood needs %q or %q and %q", "attack_id", "target_ip", "target_port")
		}
		return m.StopByTarget(ctx, ip, port)
	})

	register("list_active_attacks", func(_ context.Context, _ *domain.Args) (string, error) {
		return m.List()
	})
}
