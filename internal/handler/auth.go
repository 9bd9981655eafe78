package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/middleware"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id int64) (database.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store       AuthStore
	jwtSecret   string
	readTimeout time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string, readTimeout time.Duration) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, readTimeout: readTimeout}
}

// RegisterRoutes registers the public login endpoint.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
}

// RegisterProtectedRoutes registers endpoints that expect Authenticate
// to have run.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// --- Handlers ---

// Login handles POST /api/auth/login with email + password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[loginRequest](w, r)
	if !ok {
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	user, err := h.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeReadError(w, "get user by email", "invalid credentials", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role)
	if err != nil {
		writeInternal(w, "generate token", err)
		return
	}

	writeData(w, http.StatusOK, "", loginResponse{Token: token, User: toUserResponse(user)})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeFail(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ctx, cancel := readContext(r, h.readTimeout)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFail(w, http.StatusUnauthorized, "user not found")
			return
		}
		writeReadError(w, "get user by id", "user not found", err)
		return
	}

	writeData(w, http.StatusOK, "", toUserResponse(user))
}
