package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/pricing"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListCategories(ctx context.Context) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	ListAvailableMenuItems(ctx context.Context) ([]database.ListAvailableMenuItemsRow, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) (int64, error)
}

// MenuHandler handles the catalog endpoints.
type MenuHandler struct {
	store       MenuStore
	readTimeout time.Duration
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, readTimeout time.Duration) *MenuHandler {
	return &MenuHandler{store: store, readTimeout: readTimeout}
}

// RegisterPublicRoutes registers the storefront catalog reads.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Get("/items", h.ListItems)
}

// RegisterAdminRoutes registers catalog writes.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/categories", h.CreateCategory)
	r.Post("/items", h.CreateItem)
	r.Put("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.DeleteItem)
}

// --- Request / Response types ---

type createCategoryRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	DisplayOrder int32  `json:"display_order"`
}

type createMenuItemRequest struct {
	CategoryID     int64       `json:"category_id" validate:"required,gt=0"`
	Name           string      `json:"name" validate:"required,max=255"`
	Description    string      `json:"description"`
	Price          looseNumber `json:"price" validate:"required"`
	ImageURL       string      `json:"image_url"`
	SpicinessLevel int32       `json:"spiciness_level" validate:"gte=0,lte=5"`
	IsAvailable    *bool       `json:"is_available"`
}

type updateMenuItemRequest struct {
	CategoryID     *int64       `json:"category_id" validate:"omitempty,gt=0"`
	Name           *string      `json:"name" validate:"omitempty,max=255"`
	Description    *string      `json:"description"`
	Price          *looseNumber `json:"price"`
	ImageURL       *string      `json:"image_url"`
	SpicinessLevel *int32       `json:"spiciness_level" validate:"omitempty,gte=0,lte=5"`
	IsAvailable    *bool        `json:"is_available"`
}

type categoryResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int32     `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type menuItemResponse struct {
	ID             int64     `json:"id"`
	CategoryID     *int64    `json:"category_id"`
	CategoryName   *string   `json:"category_name,omitempty"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Price          string    `json:"price"`
	ImageURL       *string   `json:"image_url"`
	SpicinessLevel int32     `json:"spiciness_level"`
	IsAvailable    bool      `json:"is_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, DisplayOrder: c.DisplayOrder, CreatedAt: c.CreatedAt}
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:             m.ID,
		Name:           m.Name,
		Price:          database.FormatNumeric(m.Price, pricing.CurrencyPlaces),
		SpicinessLevel: m.SpicinessLevel,
		IsAvailable:    m.IsAvailable,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.CategoryID.Valid {
		resp.CategoryID = &m.CategoryID.Int64
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.ImageUrl.Valid {
		resp.ImageURL = &m.ImageUrl.String
	}
	return resp
}

// --- Helpers ---

const msgInvalidPrice = "price must be a number between 0.01 and 99999999.99"

var errNonPositivePrice = errors.New("price must be greater than 0")

func parseMenuPrice(raw string) (pgtype.Numeric, error) {
	d, err := pricing.ParseAmount(raw)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if !d.IsPositive() {
		return pgtype.Numeric{}, errNonPositivePrice
	}
	return database.DecimalToNumeric(d, pricing.CurrencyPlaces), nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Handlers ---

// ListCategories handles GET /api/menu/categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	cats, err := h.store.ListCategories(ctx)
	if err != nil {
		writeReadError(w, "list categories", "category not found", err)
		return
	}

	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = toCategoryResponse(c)
	}
	writeData(w, http.StatusOK, "", resp)
}

// ListItems handles GET /api/menu/items. Only available items are listed.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	rows, err := h.store.ListAvailableMenuItems(ctx)
	if err != nil {
		writeReadError(w, "list menu items", "item not found", err)
		return
	}

	resp := make([]menuItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = toMenuItemResponse(row.MenuItem)
		if row.CategoryName.Valid {
			name := row.CategoryName.String
			resp[i].CategoryName = &name
		}
	}
	writeData(w, http.StatusOK, "", resp)
}

// CreateCategory handles POST /api/menu/categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[createCategoryRequest](w, r)
	if !ok {
		return
	}

	cat, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		Name:         strings.TrimSpace(req.Name),
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeFail(w, http.StatusConflict, "Category already exists")
			return
		}
		writeInternal(w, "create category", err)
		return
	}

	writeData(w, http.StatusCreated, "", toCategoryResponse(cat))
}

// CreateItem handles POST /api/menu/items.
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[createMenuItemRequest](w, r)
	if !ok {
		return
	}

	price, err := parseMenuPrice(string(req.Price))
	if err != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidPrice)
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CategoryID:     pgtype.Int8{Int64: req.CategoryID, Valid: true},
		Name:           strings.TrimSpace(req.Name),
		Description:    optionalText(req.Description),
		Price:          price,
		ImageUrl:       optionalText(req.ImageURL),
		SpicinessLevel: req.SpicinessLevel,
		IsAvailable:    available,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeFail(w, http.StatusBadRequest, "category not found")
			return
		}
		writeInternal(w, "create menu item", err)
		return
	}

	writeData(w, http.StatusCreated, "", toMenuItemResponse(item))
}

// UpdateItem handles PUT /api/menu/items/{id}. Absent fields keep their
// stored values.
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest[updateMenuItemRequest](w, r)
	if !ok {
		return
	}

	params := database.UpdateMenuItemParams{ID: id}
	if req.CategoryID != nil {
		params.CategoryID = pgtype.Int8{Int64: *req.CategoryID, Valid: true}
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeFail(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		params.Name = pgtype.Text{String: name, Valid: true}
	}
	if req.Description != nil {
		params.Description = pgtype.Text{String: *req.Description, Valid: true}
	}
	if raw := req.Price.ptr(); raw != nil {
		price, err := parseMenuPrice(*raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, msgInvalidPrice)
			return
		}
		params.Price = price
	}
	if req.ImageURL != nil {
		params.ImageUrl = pgtype.Text{String: *req.ImageURL, Valid: true}
	}
	if req.SpicinessLevel != nil {
		params.SpicinessLevel = pgtype.Int4{Int32: *req.SpicinessLevel, Valid: true}
	}
	if req.IsAvailable != nil {
		params.IsAvailable = pgtype.Bool{Bool: *req.IsAvailable, Valid: true}
	}

	item, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if isForeignKeyViolation(err) {
			writeFail(w, http.StatusBadRequest, "category not found")
			return
		}
		writeReadError(w, "update menu item", "Item not found", err)
		return
	}

	writeData(w, http.StatusOK, "", toMenuItemResponse(item))
}

// DeleteItem handles DELETE /api/menu/items/{id}. Order lines keep their
// snapshot; their menu_item_id becomes NULL.
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		writeReadError(w, "delete menu item", "Item not found", err)
		return
	}

	writeData(w, http.StatusOK, "Item deleted", nil)
}
