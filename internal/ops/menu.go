package ops

import (
	"context"

	"github.com/forkpoint/gateway/internal/dispatch"
)

// The get_menu_items contract grew across versions: v1 returns a flat
// list, v2 adds customizations, v3 adds availability and prep station for
// the business app's kitchen view. Each version shapes the same backend
// data; clients on an older contract never see fields they don't know.

func menuItemsV1(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		items, err := b.MenuItems(ctx, p.String("store_id"))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for _, m := range items {
			out = append(out, map[string]any{
				"id":       m.ID,
				"name":     m.Name,
				"category": m.Category,
				"price":    dollars(m.PriceCents),
			})
		}
		return map[string]any{"items": out}, nil
	}
}

func menuItemsV2(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		items, err := b.MenuItems(ctx, p.String("store_id"))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for _, m := range items {
			out = append(out, map[string]any{
				"id":             m.ID,
				"name":           m.Name,
				"category":       m.Category,
				"price":          dollars(m.PriceCents),
				"customizations": customizationList(m),
			})
		}
		return map[string]any{"items": out}, nil
	}
}

func menuItemsV3(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		items, err := b.MenuItems(ctx, p.String("store_id"))
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(items))
		for _, m := range items {
			out = append(out, map[string]any{
				"id":             m.ID,
				"name":           m.Name,
				"category":       m.Category,
				"price":          dollars(m.PriceCents),
				"customizations": customizationList(m),
				"available":      m.Available,
				"prep_station":   m.PrepStation,
			})
		}
		return map[string]any{"items": out}, nil
	}
}

func customizationList(m MenuItem) []map[string]any {
	out := make([]map[string]any, 0, len(m.Customizations))
	for _, c := range m.Customizations {
		out = append(out, map[string]any{
			"id":    c.ID,
			"name":  c.Name,
			"price": dollars(c.PriceCents),
		})
	}
	return out
}
