package domain

import "time"

type Product struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	PurchasePrice float64   `json:"purchase_price"`
	Stock         int       `json:"stock"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PurchasePrice float64 `json:"purchase_price"`
	Stock         int     `json:"stock"`
}

type ProductUpdateRequest struct {
	Name          *string  `json:"name,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
	Stock         *int     `json:"stock,omitempty"`
}

type Service struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

type ServiceCreateRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type ServiceUpdateRequest struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// CartItem is one client-submitted, unpersisted cart entry. Price and
// purchase price travel with the cart so the order locks them in at
// creation time regardless of later catalog edits.
type CartItem struct {
	ItemID        string  `json:"item_id"`
	ItemName      string  `json:"item_name"`
	ItemType      string  `json:"item_type"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	PurchasePrice float64 `json:"purchase_price"`
}

type OrderCreateRequest struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	VehicleType   string     `json:"vehicle_type"`
	PlateNumber   string     `json:"plate_number"`
	Complaint     string     `json:"complaint"`
	Items         []CartItem `json:"items"`
}

type Order struct {
	ID            string    `json:"id"`
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	VehicleType   string    `json:"vehicle_type"`
	PlateNumber   string    `json:"plate_number"`
	Complaint     string    `json:"complaint"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderItem is an immutable priced snapshot of one catalog entry within
// one order. Price, purchase price and subtotal are copied at order time
// so historical reports stay stable across catalog edits.
type OrderItem struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	ItemType      string    `json:"item_type"`
	Quantity      int       `json:"quantity"`
	Price         float64   `json:"price"`
	PurchasePrice float64   `json:"purchase_price"`
	Subtotal      float64   `json:"subtotal"`
	CreatedAt     time.Time `json:"created_at"`
}

type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// ItemSnapshot is the reporting read model: the minimal slice of an
// order_items row needed to reconstruct revenue and cost.
type ItemSnapshot struct {
	ItemType      string
	Quantity      int
	Price         float64
	PurchasePrice float64
}

type ProfitLossReport struct {
	Period         string  `json:"period"`
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalCost      float64 `json:"totalCost"`
	TotalProfit    float64 `json:"totalProfit"`
	ProfitMargin   float64 `json:"profitMargin"`
	OrderCount     int     `json:"orderCount"`
	ItemsSold      int     `json:"itemsSold"`
	ProductRevenue float64 `json:"productRevenue"`
	ServiceRevenue float64 `json:"serviceRevenue"`
	NoData         bool    `json:"no_data,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type MechanicCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	OrderStatusProcessing = "Processing"
	OrderStatusDone       = "Done"
)

const (
	ItemTypeProduct = "product"
	ItemTypeService = "service"
)
