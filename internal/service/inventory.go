package service

import (
	"context"
	"slices"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

// Inventory keeps per-variant stock for merchandise events.
type Inventory struct {
	events EventStore
	store  InventoryStore
	deps
}

// NewInventory constructs an Inventory.
func NewInventory(events EventStore, store InventoryStore, opts ...Option) *Inventory {
	return &Inventory{events: events, store: store, deps: newDeps(opts)}
}

// Plan checks the reservation preconditions that do not depend on live
// stock, in order: variant exists, quantity within the purchase limit.
// Stock itself is only checked by the conditional decrement.
func (inv *Inventory) Plan(ev *model.Event, variant *model.VariantKey, quantity int) (*model.Reservation, error) {
	k, ok := ev.Kind.(model.MerchandiseKind)
	if !ok {
		return nil, model.ErrInvalidInput.Withf("event %s does not sell merchandise", ev.ID)
	}
	if variant == nil {
		return nil, model.ErrVariantRequired
	}
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}
	if _, ok := k.Variant(*variant); !ok {
		return nil, model.ErrVariantNotFound.
			Withf("variant %s/%s not found", variant.Size, variant.Color).
			WithMeta("size", variant.Size).
			WithMeta("color", variant.Color)
	}
	if quantity > k.PurchaseLimit {
		return nil, model.ErrPurchaseLimitExceeded.
			Withf("quantity %d exceeds purchase limit %d", quantity, k.PurchaseLimit)
	}
	return &model.Reservation{EventID: ev.ID, Variant: *variant, Quantity: quantity}, nil
}

// Reserve decrements a variant's stock by quantity with a single
// compare-and-decrement, returning the remaining stock.
func (inv *Inventory) Reserve(ctx context.Context, eventID string, variant model.VariantKey, quantity int) (int, error) {
	ev, err := inv.events.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	r, err := inv.Plan(ev, &variant, quantity)
	if err != nil {
		return 0, err
	}
	remaining, err := inv.store.ReserveStock(ctx, *r)
	if err != nil {
		return 0, err
	}
	inv.metrics.StockReserved(variant.Size, variant.Color, quantity)
	inv.log.Debug("stock.reserved", "event_id", eventID, "size", variant.Size, "color", variant.Color,
		"quantity", quantity, "remaining", remaining)
	return remaining, nil
}

// Stock returns the current stock of every variant of a merchandise event.
func (inv *Inventory) Stock(ctx context.Context, eventID string) ([]model.Variant, error) {
	ev, err := inv.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	k, ok := ev.Kind.(model.MerchandiseKind)
	if !ok {
		return nil, model.ErrInvalidInput.Withf("event %s does not sell merchandise", eventID)
	}
	return slices.Clone(k.Variants), nil
}
