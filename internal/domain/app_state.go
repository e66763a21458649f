package domain

import "time"

// AppState is the host-owned container for one unit of work: the product
// snapshot, the inventory ledger and the lifecycles operating on them.
// Build one per operation from repository snapshots; it is not shared.
type AppState struct {
	Catalog ProductCatalog
	Ledger  *InventoryLedger
	Fees    *FeeCalculator
	Orders  *OrderLifecycle
	Inbound *InboundLifecycle
}

// AppStateConfig configures the rules applied by an AppState
type AppStateConfig struct {
	Schedule *FeeSchedule
	Inbound  InboundOptions
}

// NewAppState wires the calculators and lifecycles over the given snapshots
func NewAppState(cfg AppStateConfig, products []*Product, records []*InventoryRecord) *AppState {
	catalog := NewProductCatalog(products...)
	ledger := NewInventoryLedger(records...)
	fees := NewFeeCalculator(cfg.Schedule)

	return &AppState{
		Catalog: catalog,
		Ledger:  ledger,
		Fees:    fees,
		Orders:  NewOrderLifecycle(fees, ledger, catalog),
		Inbound: NewInboundLifecycle(fees, ledger, catalog, cfg.Inbound),
	}
}

// WithClock replaces the time source of every component
func (s *AppState) WithClock(now func() time.Time) *AppState {
	s.Ledger.now = now
	s.Orders.now = now
	s.Inbound.now = now
	return s
}

// ChangedInventory returns the inventory records mutated in this unit of work
func (s *AppState) ChangedInventory() []*InventoryRecord {
	return s.Ledger.Changed()
}
