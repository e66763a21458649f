package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// MovementType identifies the kind of ledger movement
type MovementType string

const (
	MovementReserve MovementType = "reserve"
	MovementRestore MovementType = "restore"
	MovementAdjust  MovementType = "adjust"
)

// InventoryKey identifies a stock record
type InventoryKey struct {
	ProductID  string `bson:"productId" json:"productId"`
	MerchantID string `bson:"merchantId" json:"merchantId"`
}

// InventoryRecord tracks the quantity on hand of a product for a merchant
type InventoryRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProductID     string             `bson:"productId" json:"productId"`
	MerchantID    string             `bson:"merchantId" json:"merchantId"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	MinStockLevel int                `bson:"minStockLevel" json:"minStockLevel"`
	MaxStockLevel int                `bson:"maxStockLevel" json:"maxStockLevel"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewInventoryRecord creates an empty stock record
func NewInventoryRecord(productID, merchantID string) *InventoryRecord {
	now := time.Now().UTC()
	return &InventoryRecord{
		ProductID:  productID,
		MerchantID: merchantID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Key returns the record key
func (r *InventoryRecord) Key() InventoryKey {
	return InventoryKey{ProductID: r.ProductID, MerchantID: r.MerchantID}
}

// IsLowStock reports whether quantity is at or below a configured minimum
func (r *InventoryRecord) IsLowStock() bool {
	return r.MinStockLevel > 0 && r.Quantity <= r.MinStockLevel
}

// IsOverstocked reports whether quantity exceeds a configured maximum
func (r *InventoryRecord) IsOverstocked() bool {
	return r.MaxStockLevel > 0 && r.Quantity > r.MaxStockLevel
}

func (r *InventoryRecord) addDomainEvent(event DomainEvent) {
	r.domainEvents = append(r.domainEvents, event)
}

// DomainEvents returns the pending domain events
func (r *InventoryRecord) DomainEvents() []DomainEvent {
	return r.domainEvents
}

// ClearDomainEvents clears pending domain events
func (r *InventoryRecord) ClearDomainEvents() {
	r.domainEvents = nil
}

// StockLine is a quantity of one product moved by a multi-line operation
type StockLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// StockLinesFromItems converts order items to stock lines
func StockLinesFromItems(items []OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// LedgerResult describes a committed movement
type LedgerResult struct {
	ProductID        string       `json:"productId"`
	MerchantID       string       `json:"merchantId"`
	Movement         MovementType `json:"movement"`
	Quantity         int          `json:"quantity"`
	PreviousQuantity int          `json:"previousQuantity"`
	NewQuantity      int          `json:"newQuantity"`
	MinStockLevel    int          `json:"minStockLevel"`
	LowStock         bool         `json:"lowStock"`
}

// LowStockResults filters results that raised the low-stock signal
func LowStockResults(results []LedgerResult) []LedgerResult {
	var low []LedgerResult
	for _, r := range results {
		if r.LowStock {
			low = append(low, r)
		}
	}
	return low
}

// InventoryLedger applies stock movements to a snapshot of inventory records.
// It is not safe for concurrent use; callers serialize access for the whole
// multi-line operation.
type InventoryLedger struct {
	records map[InventoryKey]*InventoryRecord
	changed map[InventoryKey]struct{}
	now     func() time.Time
}

// NewInventoryLedger creates a ledger over the given records
func NewInventoryLedger(records ...*InventoryRecord) *InventoryLedger {
	l := &InventoryLedger{
		records: make(map[InventoryKey]*InventoryRecord, len(records)),
		changed: make(map[InventoryKey]struct{}),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, r := range records {
		if r != nil {
			l.records[r.Key()] = r
		}
	}
	return l
}

// Record returns the stock record for a key
func (l *InventoryLedger) Record(productID, merchantID string) (*InventoryRecord, bool) {
	r, ok := l.records[InventoryKey{ProductID: productID, MerchantID: merchantID}]
	return r, ok
}

// Quantity returns the quantity on hand, 0 when no record exists
func (l *InventoryLedger) Quantity(productID, merchantID string) int {
	if r, ok := l.Record(productID, merchantID); ok {
		return r.Quantity
	}
	return 0
}

// Reserve decrements stock, failing if the result would be negative
func (l *InventoryLedger) Reserve(productID, merchantID string, qty int) (LedgerResult, error) {
	if err := l.checkReserve(productID, merchantID, qty); err != nil {
		return LedgerResult{}, err
	}
	return l.apply(productID, merchantID, MovementReserve, qty, ""), nil
}

// Restore increments stock, creating the record when absent
func (l *InventoryLedger) Restore(productID, merchantID string, qty int) (LedgerResult, error) {
	if qty < 0 {
		return LedgerResult{}, &InvalidQuantityError{Value: qty}
	}
	return l.apply(productID, merchantID, MovementRestore, qty, ""), nil
}

// Adjust sets stock to an absolute quantity
func (l *InventoryLedger) Adjust(productID, merchantID string, qty int) (LedgerResult, error) {
	if qty < 0 {
		return LedgerResult{}, &InvalidQuantityError{Value: qty}
	}
	return l.apply(productID, merchantID, MovementAdjust, qty, ""), nil
}

// SetThresholds updates the min/max stock levels, creating the record when absent
func (l *InventoryLedger) SetThresholds(productID, merchantID string, minLevel, maxLevel int) (*InventoryRecord, error) {
	if minLevel < 0 {
		return nil, &InvalidQuantityError{Value: minLevel}
	}
	if maxLevel < 0 {
		return nil, &InvalidQuantityError{Value: maxLevel}
	}

	r := l.ensure(productID, merchantID)
	r.MinStockLevel = minLevel
	r.MaxStockLevel = maxLevel
	r.UpdatedAt = l.now()
	l.changed[r.Key()] = struct{}{}
	return r, nil
}

// ReserveAll reserves every line or none. Lines for the same product are summed,
// and every failing product is reported in the returned error.
func (l *InventoryLedger) ReserveAll(merchantID, reference string, lines []StockLine) ([]LedgerResult, error) {
	aggregated, err := aggregateLines(lines)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, line := range aggregated {
		errs = multierr.Append(errs, l.checkReserve(line.ProductID, merchantID, line.Quantity))
	}
	if errs != nil {
		return nil, errs
	}

	results := make([]LedgerResult, 0, len(aggregated))
	for _, line := range aggregated {
		results = append(results, l.apply(line.ProductID, merchantID, MovementReserve, line.Quantity, reference))
	}
	return results, nil
}

// RestoreAll restores every line or none
func (l *InventoryLedger) RestoreAll(merchantID, reference string, lines []StockLine) ([]LedgerResult, error) {
	aggregated, err := aggregateLines(lines)
	if err != nil {
		return nil, err
	}

	results := make([]LedgerResult, 0, len(aggregated))
	for _, line := range aggregated {
		results = append(results, l.apply(line.ProductID, merchantID, MovementRestore, line.Quantity, reference))
	}
	return results, nil
}

// Changed returns records touched since the ledger was created, ordered by key
func (l *InventoryLedger) Changed() []*InventoryRecord {
	keys := make([]InventoryKey, 0, len(l.changed))
	for k := range l.changed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].MerchantID != keys[j].MerchantID {
			return keys[i].MerchantID < keys[j].MerchantID
		}
		return keys[i].ProductID < keys[j].ProductID
	})

	records := make([]*InventoryRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, l.records[k])
	}
	return records
}

func (l *InventoryLedger) checkReserve(productID, merchantID string, qty int) error {
	if qty < 0 {
		return &InvalidQuantityError{Value: qty}
	}
	available := l.Quantity(productID, merchantID)
	if available-qty < 0 {
		return &InsufficientStockError{
			ProductID:  productID,
			MerchantID: merchantID,
			Requested:  qty,
			Available:  available,
		}
	}
	return nil
}

func (l *InventoryLedger) ensure(productID, merchantID string) *InventoryRecord {
	key := InventoryKey{ProductID: productID, MerchantID: merchantID}
	if r, ok := l.records[key]; ok {
		return r
	}
	r := NewInventoryRecord(productID, merchantID)
	r.CreatedAt = l.now()
	r.UpdatedAt = r.CreatedAt
	l.records[key] = r
	return r
}

// apply commits a validated movement
func (l *InventoryLedger) apply(productID, merchantID string, movement MovementType, qty int, reference string) LedgerResult {
	now := l.now()

	// A zero reserve on a missing record must not create it.
	if movement == MovementReserve && qty == 0 {
		if _, ok := l.Record(productID, merchantID); !ok {
			return LedgerResult{ProductID: productID, MerchantID: merchantID, Movement: movement}
		}
	}

	r := l.ensure(productID, merchantID)
	previous := r.Quantity

	switch movement {
	case MovementReserve:
		r.Quantity -= qty
	case MovementRestore:
		r.Quantity += qty
	case MovementAdjust:
		r.Quantity = qty
	}
	r.UpdatedAt = now
	l.changed[r.Key()] = struct{}{}

	result := LedgerResult{
		ProductID:        productID,
		MerchantID:       merchantID,
		Movement:         movement,
		Quantity:         qty,
		PreviousQuantity: previous,
		NewQuantity:      r.Quantity,
		MinStockLevel:    r.MinStockLevel,
	}
	if r.Quantity < previous && r.IsLowStock() {
		result.LowStock = true
	}

	r.addDomainEvent(&StockMovedEvent{
		ProductID:        productID,
		MerchantID:       merchantID,
		Movement:         movement,
		Quantity:         qty,
		PreviousQuantity: previous,
		NewQuantity:      r.Quantity,
		Reference:        reference,
		MovedAt:          now,
	})
	if result.LowStock {
		r.addDomainEvent(&LowStockAlertEvent{
			ProductID:       productID,
			MerchantID:      merchantID,
			CurrentQuantity: r.Quantity,
			MinStockLevel:   r.MinStockLevel,
			AlertedAt:       now,
		})
	}

	return result
}

func aggregateLines(lines []StockLine) ([]StockLine, error) {
	index := make(map[string]int, len(lines))
	aggregated := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, &InvalidQuantityError{Value: line.Quantity}
		}
		if i, ok := index[line.ProductID]; ok {
			aggregated[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(aggregated)
		aggregated = append(aggregated, line)
	}
	return aggregated, nil
}
