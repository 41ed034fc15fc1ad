package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bengkelin/backend/internal/domain"
	"bengkelin/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store, code string, stock int) string {
	t.Helper()
	created, err := s.CreateProduct(context.Background(), domain.Product{
		ProductID:     code,
		Name:          "Produk Uji",
		Price:         100,
		PurchasePrice: 60,
		Stock:         stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return created.ID
}

func productLine(orderID, code string, qty int) domain.OrderItem {
	return domain.OrderItem{
		ID:       orderID + "-" + code,
		OrderID:  orderID,
		ItemID:   code,
		ItemName: "Produk Uji",
		ItemType: domain.ItemTypeProduct,
		Quantity: qty,
		Price:    100,
		Subtotal: 100 * float64(qty),
	}
}

func testOrder(id string) domain.Order {
	return domain.Order{
		ID:            id,
		OrderNumber:   "ORD-1-TEST00",
		CustomerName:  "Uji",
		CustomerPhone: "0800",
		VehicleType:   "Motor",
		PlateNumber:   "B 1 UJI",
		Complaint:     "uji",
		Status:        domain.OrderStatusProcessing,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestCreateOrderSplitLinesShareOneStockBudget(t *testing.T) {
	s := NewSeeded()
	rowID := seedProduct(t, s, "P-SPLIT", 8)

	order := testOrder("ord-split-reject")
	items := []domain.OrderItem{
		productLine(order.ID, "P-SPLIT", 5),
		productLine(order.ID, "P-SPLIT", 5),
	}

	_, err := s.CreateOrder(context.Background(), order, items)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for 5+5 against 8, got %v", err)
	}

	product, err := s.GetProductByID(context.Background(), rowID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock untouched at 8, got %d", product.Stock)
	}
	if _, _, err := s.GetOrder(context.Background(), order.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rejected order to be absent, got %v", err)
	}
}

func TestCreateOrderSplitLinesWithinStockSucceed(t *testing.T) {
	s := NewSeeded()
	rowID := seedProduct(t, s, "P-SPLIT", 8)

	order := testOrder("ord-split-accept")
	items := []domain.OrderItem{
		productLine(order.ID, "P-SPLIT", 4),
		productLine(order.ID, "P-SPLIT", 4),
	}

	if _, err := s.CreateOrder(context.Background(), order, items); err != nil {
		t.Fatalf("create order: %v", err)
	}

	product, err := s.GetProductByID(context.Background(), rowID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 0 {
		t.Fatalf("expected stock depleted to 0, got %d", product.Stock)
	}
}
