package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bengkelin/backend/internal/domain"
	"bengkelin/backend/internal/store"
	"bengkelin/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	productsByID    map[string]domain.Product
	servicesByID    map[string]domain.Service
	ordersByID      map[string]domain.Order
	itemsByOrderID  map[string][]domain.OrderItem
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_MECHANIC_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	mechanicPwd := envOr("SEED_MECHANIC_PASSWORD", "bengkel123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_MECHANIC_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_MECHANIC_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"mechanic", mechanicPwd, "mechanic"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	base := time.Now().UTC().Add(-24 * time.Hour)
	products := []domain.Product{
		{ID: "prd-seed-01", ProductID: "P-1001", Name: "Oli Mesin 10W-40", Price: 85000, PurchasePrice: 62000, Stock: 40},
		{ID: "prd-seed-02", ProductID: "P-1002", Name: "Kampas Rem Depan", Price: 125000, PurchasePrice: 90000, Stock: 18},
		{ID: "prd-seed-03", ProductID: "P-1003", Name: "Busi Iridium", Price: 65000, PurchasePrice: 41000, Stock: 30},
		{ID: "prd-seed-04", ProductID: "P-1004", Name: "Filter Udara", Price: 55000, PurchasePrice: 36000, Stock: 12},
		{ID: "prd-seed-05", ProductID: "P-1005", Name: "Aki Kering 12V", Price: 350000, PurchasePrice: 268000, Stock: 6},
		{ID: "prd-seed-06", ProductID: "P-1006", Name: "Ban Luar 90/80", Price: 210000, PurchasePrice: 158000, Stock: 8},
	}
	services := []domain.Service{
		{ID: "svc-seed-01", ServiceID: "J-2001", Name: "Ganti Oli", Price: 25000},
		{ID: "svc-seed-02", ServiceID: "J-2002", Name: "Servis Ringan", Price: 75000},
		{ID: "svc-seed-03", ServiceID: "J-2003", Name: "Servis Besar", Price: 250000},
		{ID: "svc-seed-04", ServiceID: "J-2004", Name: "Tambal Ban Tubeless", Price: 30000},
	}

	productMap := make(map[string]domain.Product, len(products))
	for i, p := range products {
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		productMap[p.ID] = p
	}
	serviceMap := make(map[string]domain.Service, len(services))
	for i, s := range services {
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		serviceMap[s.ID] = s
	}

	return &Store{
		productsByID:    productMap,
		servicesByID:    serviceMap,
		ordersByID:      make(map[string]domain.Order),
		itemsByOrderID:  make(map[string][]domain.OrderItem),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidOrder
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.productsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) GetProductByCode(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.productsByID {
		if product.ProductID == productID {
			found := product
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.productsByID[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.ProductID = existing.ProductID
	product.CreatedAt = existing.CreatedAt
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.productsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.productsByID, id)
	return nil
}

func (s *Store) ListServices(_ context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	services := make([]domain.Service, 0, len(s.servicesByID))
	for _, svc := range s.servicesByID {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool {
		if !services[i].CreatedAt.Equal(services[j].CreatedAt) {
			return services[i].CreatedAt.After(services[j].CreatedAt)
		}
		return services[i].ID > services[j].ID
	})
	return services, nil
}

func (s *Store) CreateService(_ context.Context, service domain.Service) (*domain.Service, error) {
	if service.Name == "" || service.Price < 0 {
		return nil, store.ErrInvalidOrder
	}
	if service.ID == "" {
		service.ID = xid.New("svc")
	}
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.servicesByID[service.ID] = service
	created := service
	return &created, nil
}

func (s *Store) UpdateService(_ context.Context, service domain.Service) (*domain.Service, error) {
	if service.ID == "" || service.Name == "" || service.Price < 0 {
		return nil, store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.servicesByID[service.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	service.ServiceID = existing.ServiceID
	service.CreatedAt = existing.CreatedAt
	s.servicesByID[service.ID] = service
	updated := service
	return &updated, nil
}

func (s *Store) DeleteService(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servicesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.servicesByID, id)
	return nil
}

func (s *Store) ListOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// CreateOrder persists the order, its line items and the resulting stock
// decrements as one atomic step under the store mutex. Stock is validated
// for every product line before anything is written, so a failed order
// leaves the store untouched.
func (s *Store) CreateOrder(_ context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	if order.ID == "" || len(items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Requested quantities are summed per product row before the check, so
	// a cart that splits one product across several lines is held to the
	// same cumulative limit the serializable postgres transaction enforces.
	required := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidOrder
		}
		if item.ItemType != domain.ItemTypeProduct {
			continue
		}
		rowID := ""
		for id, product := range s.productsByID {
			if product.ProductID == item.ItemID {
				rowID = id
				break
			}
		}
		if rowID == "" {
			// Snapshot references no catalog row; persisted without a
			// stock mutation.
			continue
		}
		required[rowID] += item.Quantity
	}
	for rowID, qty := range required {
		if s.productsByID[rowID].Stock < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	for rowID, qty := range required {
		product := s.productsByID[rowID]
		product.Stock -= qty
		if product.Stock < 0 {
			product.Stock = 0
		}
		s.productsByID[rowID] = product
	}

	stored := make([]domain.OrderItem, len(items))
	copy(stored, items)
	s.ordersByID[order.ID] = order
	s.itemsByOrderID[order.ID] = stored

	created := order
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, []domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	items := make([]domain.OrderItem, len(s.itemsByOrderID[id]))
	copy(items, s.itemsByOrderID[id])
	found := order
	return &found, items, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	if status != domain.OrderStatusProcessing && status != domain.OrderStatusDone {
		return nil, store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	order.Status = status
	s.ordersByID[id] = order
	updated := order
	return &updated, nil
}

func (s *Store) ListOrderItemSnapshots(_ context.Context, from *time.Time, to *time.Time) ([]domain.ItemSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]domain.ItemSnapshot, 0, 64)
	for _, items := range s.itemsByOrderID {
		for _, item := range items {
			if from != nil && item.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && item.CreatedAt.After(*to) {
				continue
			}
			snapshots = append(snapshots, domain.ItemSnapshot{
				ItemType:      item.ItemType,
				Quantity:      item.Quantity,
				Price:         item.Price,
				PurchasePrice: item.PurchasePrice,
			})
		}
	}
	return snapshots, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidOrder
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[username] = user
	return nil
}
