package ops

import (
	"context"
	"fmt"

	"github.com/forkpoint/gateway/internal/dispatch"
)

// placeOrderV1 predates the items array; v1 clients send only a store and
// free-form notes, and the kitchen works from the ticket. An items array in
// the payload (a newer client pinned to v1) is ignored rather than
// rejected.
func placeOrderV1(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		storeID := p.String("store_id")
		if storeID == "" {
			return nil, fmt.Errorf("store_id is required")
		}
		order, err := b.PlaceOrder(ctx, Order{StoreID: storeID})
		if err != nil {
			return nil, err
		}
		return orderBody(order, false), nil
	}
}

// placeOrderV2 carries an items array. The array is optional so a v1-shaped
// payload arriving through a newer gateway still places an order.
func placeOrderV2(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		storeID := p.String("store_id")
		if storeID == "" {
			return nil, fmt.Errorf("store_id is required")
		}
		order := Order{StoreID: storeID}
		for _, raw := range p.Slice("items") {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			item := OrderItem{}
			if id, ok := entry["menu_item_id"].(string); ok {
				item.MenuItemID = id
			}
			if qty, ok := entry["quantity"].(float64); ok {
				item.Quantity = int(qty)
			}
			if notes, ok := entry["notes"].(string); ok {
				item.Notes = notes
			}
			if item.MenuItemID != "" {
				order.Items = append(order.Items, item)
			}
		}
		placed, err := b.PlaceOrder(ctx, order)
		if err != nil {
			return nil, err
		}
		return orderBody(placed, true), nil
	}
}

func getOrder(b Backend) dispatch.Handler {
	return func(ctx context.Context, p dispatch.Payload) (any, error) {
		id := p.String("order_id")
		if id == "" {
			return nil, fmt.Errorf("order_id is required")
		}
		order, err := b.Order(ctx, id)
		if err != nil {
			return nil, err
		}
		return orderBody(order, true), nil
	}
}

func orderBody(o Order, withItems bool) map[string]any {
	body := map[string]any{
		"order_id":   o.ID,
		"store_id":   o.StoreID,
		"status":     o.Status,
		"total":      dollars(o.TotalCents),
		"created_at": o.CreatedAt,
	}
	if withItems {
		items := make([]map[string]any, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, map[string]any{
				"menu_item_id": it.MenuItemID,
				"quantity":     it.Quantity,
				"notes":        it.Notes,
			})
		}
		body["items"] = items
	}
	return body
}
