package ops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StaticBackend is an in-memory Backend seeded with fixture data. It backs
// development runs and tests; production deployments swap in the hosted
// data layer client.
type StaticBackend struct {
	mu     sync.RWMutex
	menu   []MenuItem
	stores []Store
	orders map[string]Order
}

var _ Backend = (*StaticBackend)(nil)

// NewStaticBackend returns a backend with a small seeded menu and two
// locations.
func NewStaticBackend() *StaticBackend {
	return &StaticBackend{
		menu: []MenuItem{
			{
				ID: "m-1", Name: "Margherita", Category: "pizza", PriceCents: 1450,
				Available: true, PrepStation: "oven",
				Customizations: []Customization{
					{ID: "c-1", Name: "extra basil", PriceCents: 100},
					{ID: "c-2", Name: "vegan mozzarella", PriceCents: 250},
				},
			},
			{
				ID: "m-2", Name: "Diavola", Category: "pizza", PriceCents: 1650,
				Available: true, PrepStation: "oven",
				Customizations: []Customization{
					{ID: "c-3", Name: "double salami", PriceCents: 300},
				},
			},
			{
				ID: "m-3", Name: "Tiramisu", Category: "dessert", PriceCents: 750,
				Available: false, PrepStation: "cold",
			},
		},
		stores: []Store{
			{ID: "s-1", Name: "Downtown", Region: "us-east-1", Open: true, Hours: "11:00-23:00"},
			{ID: "s-2", Name: "Harborfront", Region: "eu-west-1", Open: true, Hours: "12:00-22:00"},
		},
		orders: make(map[string]Order),
	}
}

func (b *StaticBackend) MenuItems(ctx context.Context, storeID string) ([]MenuItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]MenuItem, len(b.menu))
	copy(out, b.menu)
	return out, nil
}

func (b *StaticBackend) Stores(ctx context.Context) ([]Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Store, len(b.stores))
	copy(out, b.stores)
	return out, nil
}

func (b *StaticBackend) PlaceOrder(ctx context.Context, order Order) (Order, error) {
	if order.StoreID == "" {
		return Order{}, fmt.Errorf("store_id is required")
	}
	order.ID = uuid.New().String()
	order.Status = "received"
	order.CreatedAt = time.Now()

	total := 0
	for _, item := range order.Items {
		for _, m := range b.menu {
			if m.ID == item.MenuItemID {
				qty := item.Quantity
				if qty <= 0 {
					qty = 1
				}
				total += m.PriceCents * qty
			}
		}
	}
	order.TotalCents = total

	b.mu.Lock()
	b.orders[order.ID] = order
	b.mu.Unlock()
	return order, nil
}

func (b *StaticBackend) Order(ctx context.Context, id string) (Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s not found", id)
	}
	return order, nil
}

func (b *StaticBackend) FeatureFlags(ctx context.Context, appName string) (map[string]bool, error) {
	flags := map[string]bool{
		"loyalty_program":   true,
		"scheduled_pickup":  true,
		"table_reservation": false,
	}
	if appName == "business" {
		flags["demand_dashboard"] = true
	}
	return flags, nil
}

func (b *StaticBackend) Recommendations(ctx context.Context, clientID string) ([]MenuItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []MenuItem
	for _, m := range b.menu {
		if m.Available {
			out = append(out, m)
		}
	}
	return out, nil
}

func (b *StaticBackend) DemandForecast(ctx context.Context, storeID string) (map[string]any, error) {
	return map[string]any{
		"store_id":        storeID,
		"horizon_hours":   24,
		"expected_orders": 182,
		"peak_hour":       "19:00",
	}, nil
}

func (b *StaticBackend) DynamicPricing(ctx context.Context, storeID string) (map[string]any, error) {
	return map[string]any{
		"store_id":   storeID,
		"multiplier": 1.1,
		"reason":     "friday_evening_demand",
	}, nil
}

func (b *StaticBackend) StaffingPlan(ctx context.Context, storeID string) (map[string]any, error) {
	return map[string]any{
		"store_id": storeID,
		"shifts": []map[string]any{
			{"start": "10:00", "end": "16:00", "staff": 3},
			{"start": "16:00", "end": "23:00", "staff": 5},
		},
	}, nil
}
