package ops

import (
	"context"
	"fmt"

	"github.com/forkpoint/gateway/internal/dispatch"
)

// The insight operations arrived with v4 and v5. They are pass-throughs to
// the data layer's forecasting and pricing functions; the gateway adds no
// logic beyond shaping.

func getRecommendations(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		items, err := b.Recommendations(ctx, p.String("client_id"))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for _, m := range items {
			out = append(out, map[string]any{
				"id":    m.ID,
				"name":  m.Name,
				"price": dollars(m.PriceCents),
			})
		}
		return map[string]any{"recommendations": out}, nil
	}
}

func getDemandForecast(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		storeID := p.String("store_id")
		if storeID == "" {
			return nil, fmt.Errorf("store_id is required")
		}
		return b.DemandForecast(ctx, storeID)
	}
}

func getDynamicPricing(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		storeID := p.String("store_id")
		if storeID == "" {
			return nil, fmt.Errorf("store_id is required")
		}
		return b.DynamicPricing(ctx, storeID)
	}
}

func getStaffingPlan(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		storeID := p.String("store_id")
		if storeID == "" {
			return nil, fmt.Errorf("store_id is required")
		}
		return b.StaffingPlan(ctx, storeID)
	}
}
