package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bengkelin/backend/internal/domain"
	"bengkelin/backend/internal/store"
	"bengkelin/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, price, purchase_price, stock, created_at
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidOrder
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, product_id, name, price, purchase_price, stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.ProductID, product.Name, product.Price, product.PurchasePrice, product.Stock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidOrder
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProduct(ctx, "id", id)
}

func (s *Store) GetProductByCode(ctx context.Context, productID string) (*domain.Product, error) {
	return s.getProduct(ctx, "product_id", productID)
}

func (s *Store) getProduct(ctx context.Context, column string, value string) (*domain.Product, error) {
	query := `
		SELECT id, product_id, name, price, purchase_price, stock, created_at
		FROM products
		WHERE id = $1
	`
	if column == "product_id" {
		query = `
			SELECT id, product_id, name, price, purchase_price, stock, created_at
			FROM products
			WHERE product_id = $1
		`
	}

	product, err := scanProduct(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Price < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidOrder
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, purchase_price = $4, stock = $5
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.PurchasePrice, product.Stock)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, name, price, created_at
		FROM services
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]domain.Service, 0, 32)
	for rows.Next() {
		var svc domain.Service
		var price sql.NullFloat64
		if err := rows.Scan(&svc.ID, &svc.ServiceID, &svc.Name, &price, &svc.CreatedAt); err != nil {
			return nil, err
		}
		svc.Price = price.Float64
		svc.CreatedAt = svc.CreatedAt.UTC()
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return services, nil
}

func (s *Store) CreateService(ctx context.Context, service domain.Service) (*domain.Service, error) {
	if service.Name == "" || service.Price < 0 {
		return nil, store.ErrInvalidOrder
	}
	if service.ID == "" {
		service.ID = xid.New("svc")
	}
	if service.CreatedAt.IsZero() {
		service.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, service_id, name, price, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, service.ID, service.ServiceID, service.Name, service.Price, service.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidOrder
		}
		return nil, err
	}

	created := service
	return &created, nil
}

func (s *Store) UpdateService(ctx context.Context, service domain.Service) (*domain.Service, error) {
	if service.ID == "" || service.Name == "" || service.Price < 0 {
		return nil, store.ErrInvalidOrder
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $2, price = $3
		WHERE id = $1
	`, service.ID, service.Name, service.Price)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	var updated domain.Service
	var price sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT id, service_id, name, price, created_at
		FROM services
		WHERE id = $1
	`, service.ID).Scan(&updated.ID, &updated.ServiceID, &updated.Name, &price, &updated.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated.Price = price.Float64
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, customer_name, customer_phone, vehicle_type,
			plate_number, complaint, total_amount, status, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// CreateOrder runs the order insert, every line-item insert and every stock
// decrement inside one serializable transaction. Stock rows are locked with
// FOR UPDATE before validation, so a cart asking for more than is on hand
// aborts the whole transaction and commits nothing.
func (s *Store) CreateOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	if order.ID == "" || len(items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_name, customer_phone, vehicle_type,
			plate_number, complaint, total_amount, status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, order.ID, order.OrderNumber, order.CustomerName, order.CustomerPhone, order.VehicleType,
		order.PlateNumber, order.Complaint, order.TotalAmount, order.Status, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidOrder
		}

		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, item_id, item_name, item_type, quantity,
				price, purchase_price, subtotal, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, item.ID, order.ID, item.ItemID, item.ItemName, item.ItemType, item.Quantity,
			item.Price, item.PurchasePrice, item.Subtotal, item.CreatedAt)
		if err != nil {
			return nil, err
		}

		if item.ItemType != domain.ItemTypeProduct {
			continue
		}

		var currentStock int
		err = pgTx.QueryRowContext(ctx, `
			SELECT stock
			FROM products
			WHERE product_id = $1
			FOR UPDATE
		`, item.ItemID).Scan(&currentStock)
		if errors.Is(err, sql.ErrNoRows) {
			// Snapshot references no catalog row; keep the line item and
			// skip the stock mutation.
			continue
		}
		if err != nil {
			return nil, err
		}
		if currentStock < item.Quantity {
			return nil, store.ErrInsufficientStock
		}

		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = GREATEST(stock - $1, 0)
			WHERE product_id = $2
		`, item.Quantity, item.ItemID)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, []domain.OrderItem, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_name, customer_phone, vehicle_type,
			plate_number, complaint, total_amount, status, created_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, item_name, item_type, quantity,
			price, purchase_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		var price, purchase, subtotal sql.NullFloat64
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.ItemName, &item.ItemType,
			&item.Quantity, &price, &purchase, &subtotal, &item.CreatedAt); err != nil {
			return nil, nil, err
		}
		item.Price = price.Float64
		item.PurchasePrice = purchase.Float64
		item.Subtotal = subtotal.Float64
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &order, items, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	if status != domain.OrderStatusProcessing && status != domain.OrderStatusDone {
		return nil, store.ErrInvalidOrder
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_name, customer_phone, vehicle_type,
			plate_number, complaint, total_amount, status, created_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrderItemSnapshots selects the priced snapshots inside the inclusive
// window. Monetary columns are scanned through NullFloat64 so NULLs stored
// by older writers aggregate as zero instead of failing the report.
func (s *Store) ListOrderItemSnapshots(ctx context.Context, from *time.Time, to *time.Time) ([]domain.ItemSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_type, quantity, price, purchase_price
		FROM order_items
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]domain.ItemSnapshot, 0, 128)
	for rows.Next() {
		var snap domain.ItemSnapshot
		var qty sql.NullInt64
		var price, purchase sql.NullFloat64
		if err := rows.Scan(&snap.ItemType, &qty, &price, &purchase); err != nil {
			return nil, err
		}
		snap.Quantity = int(qty.Int64)
		snap.Price = price.Float64
		snap.PurchasePrice = purchase.Float64
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidOrder
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidOrder
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var price, purchase sql.NullFloat64
	var stock sql.NullInt64
	if err := row.Scan(&p.ID, &p.ProductID, &p.Name, &price, &purchase, &stock, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Price = price.Float64
	p.PurchasePrice = purchase.Float64
	p.Stock = int(stock.Int64)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var total sql.NullFloat64
	if err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerName, &order.CustomerPhone,
		&order.VehicleType, &order.PlateNumber, &order.Complaint, &total, &order.Status, &order.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	order.TotalAmount = total.Float64
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
