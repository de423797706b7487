// Package ops implements the versioned business operations the dispatcher
// serves. Each operation is a thin shaping layer over the hosted data
// layer, reached through the Backend interface; version differences live
// here, not in the dispatcher.
package ops

import (
	"context"
	"time"
)

// Customization is an orderable modification of a menu item.
type Customization struct {
	ID         string
	Name       string
	PriceCents int
}

// MenuItem is one orderable item as the data layer models it.
type MenuItem struct {
	ID             string
	Name           string
	Category       string
	PriceCents     int
	Customizations []Customization
	Available      bool
	PrepStation    string
}

// Store is one restaurant location.
type Store struct {
	ID     string
	Name   string
	Region string
	Open   bool
	Hours  string
}

// OrderItem is one line of an order.
type OrderItem struct {
	MenuItemID string
	Quantity   int
	Notes      string
}

// Order is a placed order.
type Order struct {
	ID         string
	StoreID    string
	Status     string
	Items      []OrderItem
	TotalCents int
	CreatedAt  time.Time
}

// Backend is the opaque data layer the operations dispatch into. Order
// placement, loyalty, pricing, and forecasting all live behind it; the
// gateway only names them.
type Backend interface {
	MenuItems(ctx context.Context, storeID string) ([]MenuItem, error)
	Stores(ctx context.Context) ([]Store, error)
	PlaceOrder(ctx context.Context, order Order) (Order, error)
	Order(ctx context.Context, id string) (Order, error)
	FeatureFlags(ctx context.Context, appName string) (map[string]bool, error)
	Recommendations(ctx context.Context, clientID string) ([]MenuItem, error)
	DemandForecast(ctx context.Context, storeID string) (map[string]any, error)
	DynamicPricing(ctx context.Context, storeID string) (map[string]any, error)
	StaffingPlan(ctx context.Context, storeID string) (map[string]any, error)
}

func dollars(cents int) float64 {
	return float64(cents) / 100
}
