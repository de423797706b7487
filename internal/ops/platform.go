package ops

import (
	"context"

	"github.com/forkpoint/gateway/internal/dispatch"
	"github.com/forkpoint/gateway/internal/version"
)

func getStores(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		stores, err := b.Stores(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(stores))
		for _, s := range stores {
			out = append(out, map[string]any{
				"id":     s.ID,
				"name":   s.Name,
				"region": s.Region,
				"open":   s.Open,
				"hours":  s.Hours,
			})
		}
		return map[string]any{"stores": out}, nil
	}
}

func getFeatureFlags(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		flags, err := b.FeatureFlags(ctx, p.String("app_name"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"flags": flags}, nil
	}
}

// checkCompatibility lets a client probe what contract it would be served
// without issuing a real operation, using the same resolver the gateway
// uses.
func checkCompatibility(resolver *version.Resolver, registry *version.Registry) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		res := resolver.Resolve(version.ClientContext{
			AppName:          p.String("app_name"),
			AppVersion:       p.String("app_version"),
			RequestedVersion: p.String("api_version"),
		})
		snap := registry.Active()
		return map[string]any{
			"resolved_version": res.Version,
			"fallback":         res.UsedFallback,
			"active_version":   snap.Current,
			"fallback_version": snap.Fallback,
		}, nil
	}
}
