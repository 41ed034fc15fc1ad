package store

import (
	"context"
	"errors"
	"time"

	"bengkelin/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidOrder      = errors.New("invalid order")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByCode(ctx context.Context, productID string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListServices(ctx context.Context) ([]domain.Service, error)
	CreateService(ctx context.Context, service domain.Service) (*domain.Service, error)
	UpdateService(ctx context.Context, service domain.Service) (*domain.Service, error)
	DeleteService(ctx context.Context, id string) error

	ListOrders(ctx context.Context) ([]domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, []domain.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error)

	ListOrderItemSnapshots(ctx context.Context, from *time.Time, to *time.Time) ([]domain.ItemSnapshot, error)

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
}
