package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int32     `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type MenuItem struct {
	ID             int64          `json:"id"`
	CategoryID     pgtype.Int8    `json:"category_id"`
	Name           string         `json:"name"`
	Description    pgtype.Text    `json:"description"`
	Price          pgtype.Numeric `json:"price"`
	ImageUrl       pgtype.Text    `json:"image_url"`
	SpicinessLevel int32          `json:"spiciness_level"`
	IsAvailable    bool           `json:"is_available"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Order struct {
	ID                  int64          `json:"id"`
	UserID              pgtype.Int8    `json:"user_id"`
	TotalPrice          pgtype.Numeric `json:"total_price"`
	CustomerName        string         `json:"customer_name"`
	CustomerPhone       string         `json:"customer_phone"`
	SpecialInstructions pgtype.Text    `json:"special_instructions"`
	Status              string         `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID          int64          `json:"id"`
	OrderID     int64          `json:"order_id"`
	MenuItemID  pgtype.Int8    `json:"menu_item_id"`
	Quantity    int32          `json:"quantity"`
	PriceAtTime pgtype.Numeric `json:"price_at_time"`
	ItemName    string         `json:"item_name"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type WorkOrder struct {
	ID                  int64          `json:"id"`
	WorkOrderNumber     string         `json:"work_order_number"`
	Date                pgtype.Date    `json:"date"`
	ClientName          string         `json:"client_name"`
	ClientAddress       pgtype.Text    `json:"client_address"`
	ClientCity          pgtype.Text    `json:"client_city"`
	ClientState         pgtype.Text    `json:"client_state"`
	ClientZip           pgtype.Text    `json:"client_zip"`
	ClientPhone         pgtype.Text    `json:"client_phone"`
	ClientDlLicense     pgtype.Text    `json:"client_dl_license"`
	VehicleVin          pgtype.Text    `json:"vehicle_vin"`
	VehicleOdometer     pgtype.Int4    `json:"vehicle_odometer"`
	VehicleYear         pgtype.Int4    `json:"vehicle_year"`
	VehicleMake         pgtype.Text    `json:"vehicle_make"`
	VehicleModel        pgtype.Text    `json:"vehicle_model"`
	VehicleLicensePlate pgtype.Text    `json:"vehicle_license_plate"`
	Subtotal            pgtype.Numeric `json:"subtotal"`
	TaxRate             pgtype.Numeric `json:"tax_rate"`
	TaxAmount           pgtype.Numeric `json:"tax_amount"`
	Total               pgtype.Numeric `json:"total"`
	ClientSalePrice     pgtype.Numeric `json:"client_sale_price"`
	Profit              pgtype.Numeric `json:"profit"`
	OtherComments       pgtype.Text    `json:"other_comments"`
	Status              string         `json:"status"`
	CreatedBy           pgtype.Int8    `json:"created_by"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type WorkOrderItem struct {
	ID          int64          `json:"id"`
	WorkOrderID int64          `json:"work_order_id"`
	Description string         `json:"description"`
	Taxed       bool           `json:"taxed"`
	UnitPrice   pgtype.Numeric `json:"unit_price"`
	Quantity    int32          `json:"quantity"`
	Total       pgtype.Numeric `json:"total"`
}
