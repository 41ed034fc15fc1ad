package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bengkelin/backend/internal/cache"
	"bengkelin/backend/internal/domain"
	"bengkelin/backend/internal/store"
	"bengkelin/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const reportCacheKeyPrefix = "report:profit-loss:"

type Service struct {
	repo        store.Repository
	reportCache cache.ReportCache
	reportTTL   time.Duration
}

func New(repo store.Repository, reportCache cache.ReportCache, reportTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 30 * time.Second
	}

	return &Service{
		repo:        repo,
		reportCache: reportCache,
		reportTTL:   reportTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 || req.PurchasePrice < 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidOrder
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:            xid.New("prd"),
		ProductID:     xid.CatalogCode("P", now),
		Name:          req.Name,
		Price:         req.Price,
		PurchasePrice: req.PurchasePrice,
		Stock:         req.Stock,
		CreatedAt:     now,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidOrder
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidOrder
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Product{}, store.ErrInvalidOrder
		}
		updated.Price = *req.Price
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice < 0 {
			return domain.Product{}, store.ErrInvalidOrder
		}
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidOrder
		}
		updated.Stock = *req.Stock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidOrder
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}

func (s *Service) CreateService(ctx context.Context, req domain.ServiceCreateRequest) (domain.Service, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price < 0 {
		return domain.Service{}, store.ErrInvalidOrder
	}

	now := time.Now().UTC()
	service := domain.Service{
		ID:        xid.New("svc"),
		ServiceID: xid.CatalogCode("J", now),
		Name:      req.Name,
		Price:     req.Price,
		CreatedAt: now,
	}

	created, err := s.repo.CreateService(ctx, service)
	if err != nil {
		return domain.Service{}, err
	}
	return *created, nil
}

func (s *Service) UpdateService(ctx context.Context, id string, req domain.ServiceUpdateRequest) (domain.Service, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Service{}, store.ErrInvalidOrder
	}

	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return domain.Service{}, err
	}
	var existing *domain.Service
	for i := range services {
		if services[i].ID == id {
			existing = &services[i]
			break
		}
	}
	if existing == nil {
		return domain.Service{}, store.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Service{}, store.ErrInvalidOrder
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.Service{}, store.ErrInvalidOrder
		}
		updated.Price = *req.Price
	}

	saved, err := s.repo.UpdateService(ctx, updated)
	if err != nil {
		return domain.Service{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteService(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidOrder
	}
	return s.repo.DeleteService(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// CreateOrder converts a validated cart into a persisted order. The total is
// the sum of cart-supplied price * quantity; catalog prices are deliberately
// not re-read here, so the amounts the customer saw are the amounts locked
// into the snapshots.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.VehicleType = strings.TrimSpace(req.VehicleType)
	req.PlateNumber = strings.TrimSpace(req.PlateNumber)
	req.Complaint = strings.TrimSpace(req.Complaint)

	if req.CustomerName == "" || req.CustomerPhone == "" || req.VehicleType == "" ||
		req.PlateNumber == "" || req.Complaint == "" {
		return domain.Order{}, store.ErrInvalidOrder
	}
	if len(req.Items) == 0 {
		return domain.Order{}, store.ErrInvalidOrder
	}

	totalAmount := 0.0
	for _, item := range req.Items {
		if item.Quantity < 1 || item.Price < 0 || item.PurchasePrice < 0 {
			return domain.Order{}, store.ErrInvalidOrder
		}
		if item.ItemType != domain.ItemTypeProduct && item.ItemType != domain.ItemTypeService {
			return domain.Order{}, store.ErrInvalidOrder
		}
		totalAmount += item.Price * float64(item.Quantity)
	}

	// Pre-flight stock check so an oversized cart is rejected before the
	// store transaction starts. The store re-checks under lock, which is
	// what actually protects against concurrent orders.
	for _, item := range req.Items {
		if item.ItemType != domain.ItemTypeProduct {
			continue
		}
		product, err := s.repo.GetProductByCode(ctx, item.ItemID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.Order{}, err
		}
		if product.Stock < item.Quantity {
			return domain.Order{}, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:            xid.New("ord"),
		OrderNumber:   xid.OrderNumber(now),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		VehicleType:   req.VehicleType,
		PlateNumber:   req.PlateNumber,
		Complaint:     req.Complaint,
		TotalAmount:   totalAmount,
		Status:        domain.OrderStatusProcessing,
		CreatedAt:     now,
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ID:            xid.New("itm"),
			OrderID:       order.ID,
			ItemID:        item.ItemID,
			ItemName:      strings.TrimSpace(item.ItemName),
			ItemType:      item.ItemType,
			Quantity:      item.Quantity,
			Price:         item.Price,
			PurchasePrice: purchasePriceFor(item),
			Subtotal:      item.Price * float64(item.Quantity),
			CreatedAt:     now,
		})
	}

	created, err := s.repo.CreateOrder(ctx, order, items)
	if err != nil {
		return domain.Order{}, err
	}

	// New snapshots change every report window, so cached reports are
	// dropped to keep reads current right after a sale.
	if err := s.reportCache.Invalidate(ctx, reportCacheKeyPrefix); err != nil {
		log.Printf("[service] WARN: report cache invalidation failed: %v", err)
	}

	return *created, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.OrderDetail, error) {
	if strings.TrimSpace(id) == "" {
		return domain.OrderDetail{}, store.ErrInvalidOrder
	}

	order, items, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return domain.OrderDetail{Order: *order, Items: items}, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, req domain.OrderStatusUpdateRequest) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, store.ErrInvalidOrder
	}
	if req.Status != domain.OrderStatusProcessing && req.Status != domain.OrderStatusDone {
		return domain.Order{}, store.ErrInvalidOrder
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		return domain.Order{}, err
	}
	return *updated, nil
}

// ProfitLoss reconstructs revenue, cost and margin from the raw line-item
// snapshots inside the optional inclusive date window. Bounds accept
// RFC 3339 timestamps or plain 2006-01-02 dates.
func (s *Service) ProfitLoss(ctx context.Context, startDate string, endDate string) (domain.ProfitLossReport, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)

	from, err := parseDateBound(startDate)
	if err != nil {
		return domain.ProfitLossReport{}, fmt.Errorf("invalid start date %q: %w", startDate, store.ErrInvalidOrder)
	}
	to, err := parseDateBound(endDate)
	if err != nil {
		return domain.ProfitLossReport{}, fmt.Errorf("invalid end date %q: %w", endDate, store.ErrInvalidOrder)
	}

	period := fmt.Sprintf("%s to %s", defaultString(startDate, "All"), defaultString(endDate, "Now"))

	cacheKey := fmt.Sprintf("%s%s:%s", reportCacheKeyPrefix, startDate, endDate)
	if cached, ok, err := s.reportCache.Get(ctx, cacheKey); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: report cache read failed: %v", err)
	}

	snapshots, err := s.repo.ListOrderItemSnapshots(ctx, from, to)
	if err != nil {
		return domain.ProfitLossReport{}, err
	}

	report := foldProfitLoss(snapshots, period)

	if err := s.reportCache.Set(ctx, cacheKey, &report, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed: %v", err)
	}

	return report, nil
}

// foldProfitLoss is the aggregation core: a single pass over the snapshots.
// Services carry no cost basis, so their entire revenue lands in profit.
func foldProfitLoss(snapshots []domain.ItemSnapshot, period string) domain.ProfitLossReport {
	report := domain.ProfitLossReport{Period: period}

	if len(snapshots) == 0 {
		report.NoData = true
		return report
	}

	for _, snap := range snapshots {
		revenue := snap.Price * float64(snap.Quantity)
		report.TotalRevenue += revenue
		report.ItemsSold += snap.Quantity

		switch snap.ItemType {
		case domain.ItemTypeProduct:
			report.TotalCost += snap.PurchasePrice * float64(snap.Quantity)
			report.ProductRevenue += revenue
		case domain.ItemTypeService:
			report.ServiceRevenue += revenue
		}
	}

	report.TotalProfit = report.TotalRevenue - report.TotalCost
	if report.TotalRevenue > 0 {
		margin := report.TotalProfit / report.TotalRevenue * 100
		report.ProfitMargin = math.Round(margin*100) / 100
	}
	// orderCount counts line-item rows, not distinct orders; kept as the
	// historical meaning of this field.
	report.OrderCount = len(snapshots)

	return report
}

func (s *Service) CreateMechanic(ctx context.Context, req domain.MechanicCreateRequest) (domain.StaffUser, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.StaffUser{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || len(req.Password) < 8 {
		return domain.StaffUser{}, store.ErrInvalidOrder
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, err
	}
	hash := string(hashed)

	now := time.Now().UTC()
	account := domain.UserAccount{
		Username:  username,
		Password:  hash,
		Role:      "mechanic",
		Active:    true,
		CreatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, account); err != nil {
		return domain.StaffUser{}, err
	}

	return domain.StaffUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func purchasePriceFor(item domain.CartItem) float64 {
	// Cost basis exists only for tangible goods; a service snapshot always
	// records zero.
	if item.ItemType == domain.ItemTypeService {
		return 0
	}
	return item.PurchasePrice
}

func parseDateBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
