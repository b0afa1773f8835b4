package stock

import (
	"fmt"
	"sync"
	"time"
)

// Notifier receives the warning emitted alongside each low-stock alert.
type Notifier interface {
	Warning(title, message string)
}

// Ledger holds the last-synced product snapshot and derives low-stock alerts
// from mutations. It is the single owner of both; readers get copies.
//
// Alerts are deliberately not deduplicated across repeated breaches of the
// same product: every qualifying mutation appends one, matching the reference
// behavior. A snapshot replacement rebuilds the set from scratch.
type Ledger struct {
	mu          sync.Mutex
	products    []Product
	index       map[int64]int
	alerts      []LowStockAlert
	notifier    Notifier
	lastSync    time.Time
	lastAlertID int64
}

// NewLedger constructs a Ledger. notifier may be nil.
func NewLedger(notifier Notifier) *Ledger {
	return &Ledger{
		index:    make(map[int64]int),
		notifier: notifier,
	}
}

// ApplyMutation adjusts the product's stock by delta, clamped at zero, and
// returns the updated product. A mutation that leaves 0 < stock <= threshold
// appends a low-stock alert (IsNew=true) and emits a warning notification,
// whether or not the product was already below threshold.
func (l *Ledger) ApplyMutation(productID int64, delta int) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	p := &l.products[i]
	newStock := p.Stock + delta
	if newStock < 0 {
		newStock = 0
	}
	p.Stock = newStock
	p.UpdatedAt = time.Now().UTC()

	if p.LowStock() {
		l.alerts = append(l.alerts, LowStockAlert{
			ID:           l.nextAlertIDLocked(),
			ProductID:    p.ID,
			ProductName:  p.Name,
			CurrentStock: newStock,
			Threshold:    p.LowStockThreshold,
			IsNew:        true,
		})
		if l.notifier != nil {
			l.notifier.Warning("Low stock: "+p.Name, fmt.Sprintf("%d remaining", newStock))
		}
	}
	return *p, nil
}

// ReplaceSnapshot swaps in a freshly synced product snapshot and recomputes
// the alert set from it. Alerts derived this way carry IsNew=false: the
// condition was already present in the snapshot, not observed live.
func (l *Ledger) ReplaceSnapshot(products []Product) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.products = make([]Product, len(products))
	copy(l.products, products)
	l.index = make(map[int64]int, len(products))
	l.alerts = nil
	for i, p := range l.products {
		l.index[p.ID] = i
		if p.LowStock() {
			l.alerts = append(l.alerts, LowStockAlert{
				ID:           l.nextAlertIDLocked(),
				ProductID:    p.ID,
				ProductName:  p.Name,
				CurrentStock: p.Stock,
				Threshold:    p.LowStockThreshold,
				IsNew:        false,
			})
		}
	}
	l.lastSync = time.Now().UTC()
}

// Product returns the product with the given id.
func (l *Ledger) Product(productID int64) (Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[productID]
	if !ok {
		return Product{}, false
	}
	return l.products[i], true
}

// Products returns a copy of the current snapshot.
func (l *Ledger) Products() []Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Product, len(l.products))
	copy(out, l.products)
	return out
}

// Alerts returns a copy of the current alert set.
func (l *Ledger) Alerts() []LowStockAlert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LowStockAlert, len(l.alerts))
	copy(out, l.alerts)
	return out
}

// LastSync reports when the snapshot was last replaced.
func (l *Ledger) LastSync() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSync
}

// Alert ids mirror the reference's timestamp ids but stay unique when two
// alerts land in the same nanosecond.
func (l *Ledger) nextAlertIDLocked() int64 {
	id := time.Now().UnixNano()
	if id <= l.lastAlertID {
		id = l.lastAlertID + 1
	}
	l.lastAlertID = id
	return id
}
