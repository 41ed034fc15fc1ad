package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"bengkelin/backend/internal/domain"
	"bengkelin/backend/internal/store"
)

func TestCreateOrderDepletesStockTransactionally(t *testing.T) {
	databaseURL := os.Getenv("BENGKELIN_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BENGKELIN_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productRowID := fmt.Sprintf("prd-order-it-%d", stamp)
	productCode := fmt.Sprintf("P-IT-%d", stamp)
	orderID := fmt.Sprintf("ord-order-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id LIKE $1`, orderID+"%")
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id LIKE $1`, orderID+"%")
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productRowID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, product_id, name, price, purchase_price, stock, created_at)
		VALUES ($1, $2, 'Oli Order IT', 85000, 62000, 10, now())
	`, productRowID, productCode); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:            orderID,
		OrderNumber:   fmt.Sprintf("ORD-%d-ITTEST", now.UnixMilli()),
		CustomerName:  "Integrasi Tester",
		CustomerPhone: "0800-0000-0000",
		VehicleType:   "Honda Beat",
		PlateNumber:   "B 99 IT",
		Complaint:     "order integration",
		TotalAmount:   170000,
		Status:        domain.OrderStatusProcessing,
		CreatedAt:     now,
	}
	items := []domain.OrderItem{
		{
			ID:            orderID + "-item-1",
			OrderID:       orderID,
			ItemID:        productCode,
			ItemName:      "Oli Order IT",
			ItemType:      domain.ItemTypeProduct,
			Quantity:      2,
			Price:         85000,
			PurchasePrice: 62000,
			Subtotal:      170000,
			CreatedAt:     now,
		},
	}

	if _, err := s.CreateOrder(ctx, order, items); err != nil {
		t.Fatalf("create order: %v", err)
	}

	product, err := s.GetProductByCode(ctx, productCode)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock 8 after order, got %d", product.Stock)
	}

	stored, storedItems, err := s.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.OrderNumber != order.OrderNumber || len(storedItems) != 1 {
		t.Fatalf("unexpected persisted order %+v with %d items", stored, len(storedItems))
	}

	// An oversized follow-up order must roll back completely: no order row,
	// no item rows, stock untouched.
	big := order
	big.ID = orderID + "-big"
	big.OrderNumber = fmt.Sprintf("ORD-%d-ITBIGX", now.UnixMilli())
	bigItems := []domain.OrderItem{
		{
			ID:            orderID + "-big-item",
			OrderID:       big.ID,
			ItemID:        productCode,
			ItemName:      "Oli Order IT",
			ItemType:      domain.ItemTypeProduct,
			Quantity:      99,
			Price:         85000,
			PurchasePrice: 62000,
			Subtotal:      85000 * 99,
			CreatedAt:     now,
		},
	}

	_, err = s.CreateOrder(ctx, big, bigItems)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if _, _, err := s.GetOrder(ctx, big.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rolled-back order to be absent, got %v", err)
	}

	product, err = s.GetProductByCode(ctx, productCode)
	if err != nil {
		t.Fatalf("get product after rollback: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock unchanged at 8 after rollback, got %d", product.Stock)
	}
}
