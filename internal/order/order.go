// Package order holds the active (in-progress) sale an operator is building.
// Only the pieces the scan flow touches live here: line items and the merge
// rule. Checkout, pricing rules, and payment are the backend's business.
package order

import (
	"sync"

	"github.com/Juan-David1001/santishop-sub001/internal/catalog"
)

// Line is one order line: a product at a quantity.
type Line struct {
	Product  catalog.Product
	Quantity int
}

// Subtotal returns the line's price contribution.
func (l Line) Subtotal() float64 {
	return l.Product.SellingPrice * float64(l.Quantity)
}

// Order is the active order for one POS screen instance.
type Order struct {
	mu    sync.Mutex
	lines []Line
}

// New creates an empty order.
func New() *Order {
	return &Order{}
}

// AddProduct inserts a product at quantity 1, merging with an existing line
// for the same product by incrementing its quantity. Returns the resulting
// quantity of that product's line.
func (o *Order) AddProduct(p catalog.Product) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.lines {
		if o.lines[i].Product.ID == p.ID {
			o.lines[i].Quantity++
			return o.lines[i].Quantity
		}
	}

	o.lines = append(o.lines, Line{Product: p, Quantity: 1})
	return 1
}

// Lines returns a copy of the current order lines.
func (o *Order) Lines() []Line {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}

// Total returns the sum of all line subtotals.
func (o *Order) Total() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	var total float64
	for _, l := range o.lines {
		total += l.Subtotal()
	}
	return total
}

// Clear empties the order (after checkout or operator reset).
func (o *Order) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = nil
}
