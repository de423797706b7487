package ops

import (
	"fmt"

	"github.com/forkpoint/gateway/internal/dispatch"
	"github.com/forkpoint/gateway/internal/version"
)

// Deps carries what the operation handlers close over.
type Deps struct {
	Backend  Backend
	Registry *version.Registry
	Resolver *version.Resolver

	// RegionHealth serves get_region_health; supplied by the fanout
	// package so ops stays free of delivery concerns.
	RegionHealth dispatch.Handler
}

// RegisterAll installs every versioned operation on the dispatcher. Each
// version registers only the operations it introduced or changed; older
// definitions are reached by dispatcher fallthrough.
func RegisterAll(d *dispatch.Dispatcher, deps Deps) error {
	if deps.Backend == nil {
		return fmt.Errorf("ops registration requires a backend")
	}
	b := deps.Backend

	type reg struct {
		version   string
		operation string
		handler   dispatch.Handler
	}
	regs := []reg{
		// v1: the original contract.
		{"v1", "get_menu_items", menuItemsV1(b)},
		{"v1", "get_stores", getStores(b)},
		{"v1", "place_order", placeOrderV1(b)},
		{"v1", "get_order", getOrder(b)},
		{"v1", "get_feature_flags", getFeatureFlags(b)},
		{"v1", "check_compatibility", checkCompatibility(deps.Resolver, deps.Registry)},

		// v2: menu customizations, orders grow an items array.
		{"v2", "get_menu_items", menuItemsV2(b)},
		{"v2", "place_order", placeOrderV2(b)},

		// v3: kitchen metadata on menu items, region health.
		{"v3", "get_menu_items", menuItemsV3(b)},

		// v4: recommendation and forecasting pass-throughs.
		{"v4", "get_recommendations", getRecommendations(b)},
		{"v4", "get_demand_forecast", getDemandForecast(b)},

		// v5: pricing and staffing.
		{"v5", "get_dynamic_pricing", getDynamicPricing(b)},
		{"v5", "get_staffing_plan", getStaffingPlan(b)},
	}
	if deps.RegionHealth != nil {
		regs = append(regs, reg{"v3", "get_region_health", deps.RegionHealth})
	}

	for _, r := range regs {
		if err := d.Register(r.version, r.operation, r.handler); err != nil {
			return fmt.Errorf("registering %s/%s: %w", r.version, r.operation, err)
		}
	}

	d.MarkMutating("place_order")
	return nil
}
