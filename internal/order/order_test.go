package order

import (
	"testing"

	"github.com/Juan-David1001/santishop-sub001/internal/catalog"
)

var (
	milk  = catalog.Product{ID: 1, Name: "Milk 1L", SellingPrice: 4500, SKU: "111"}
	bread = catalog.Product{ID: 2, Name: "Bread", SellingPrice: 3200, SKU: "222"}
)

func TestAddProduct_NewLine(t *testing.T) {
	o := New()
	if qty := o.AddProduct(milk); qty != 1 {
		t.Errorf("expected quantity 1, got %d", qty)
	}
	lines := o.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Product.ID != milk.ID || lines[0].Quantity != 1 {
		t.Errorf("unexpected line: %+v", lines[0])
	}
}

func TestAddProduct_MergesSameProduct(t *testing.T) {
	o := New()
	o.AddProduct(milk)
	if qty := o.AddProduct(milk); qty != 2 {
		t.Errorf("expected merged quantity 2, got %d", qty)
	}
	if len(o.Lines()) != 1 {
		t.Errorf("expected single merged line, got %d", len(o.Lines()))
	}
}

func TestAddProduct_DistinctProducts(t *testing.T) {
	o := New()
	o.AddProduct(milk)
	o.AddProduct(bread)
	o.AddProduct(milk)

	lines := o.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Quantity != 2 || lines[1].Quantity != 1 {
		t.Errorf("unexpected quantities: %+v", lines)
	}
}

func TestTotal(t *testing.T) {
	o := New()
	o.AddProduct(milk)
	o.AddProduct(milk)
	o.AddProduct(bread)

	want := 2*4500.0 + 3200.0
	if got := o.Total(); got != want {
		t.Errorf("Total = %v, want %v", got, want)
	}
}

func TestClear(t *testing.T) {
	o := New()
	o.AddProduct(milk)
	o.Clear()
	if len(o.Lines()) != 0 || o.Total() != 0 {
		t.Error("order not empty after Clear")
	}
}
