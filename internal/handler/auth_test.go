package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/enum"
	"github.com/base2-shop/api/internal/handler"
	"github.com/base2-shop/api/internal/middleware"
)

// --- Mock store ---

type mockAuthStore struct {
	byEmail map[string]database.User
	byID    map[int64]database.User
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{byEmail: map[string]database.User{}, byID: map[int64]database.User{}}
}

func (m *mockAuthStore) addUser(u database.User) {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id int64) (database.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

// --- Helpers ---

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func setupAuthRouter(t *testing.T) (*chi.Mux, *mockAuthStore) {
	t.Helper()
	store := newMockAuthStore()
	store.addUser(database.User{
		ID:           3,
		Email:        "admin@shop.test",
		Name:         "Admin",
		PasswordHash: hashPassword(t, "correct-password"),
		Role:         enum.UserRoleAdmin,
	})

	h := handler.NewAuthHandler(store, testSecret, time.Second)
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(testSecret))
			h.RegisterProtectedRoutes(r)
		})
	})
	return r, store
}

// --- Login tests ---

func TestLogin_Success(t *testing.T) {
	r, _ := setupAuthRouter(t)

	rr := doRequest(t, r, "POST", "/auth/login", map[string]string{"email": "admin@shop.test", "password": "correct-password"})
	expectStatus(t, rr, http.StatusOK)

	data := decodeResponse(t, rr)["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	claims, err := auth.ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("token should validate: %v", err)
	}
	if claims.UserID != 3 || claims.Role != enum.UserRoleAdmin {
		t.Errorf("claims: got %+v", claims)
	}
	user := data["user"].(map[string]interface{})
	if user["email"] != "admin@shop.test" {
		t.Errorf("user: got %v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must not be returned")
	}
}

func TestLogin_Failures(t *testing.T) {
	r, _ := setupAuthRouter(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"wrong password", map[string]string{"email": "admin@shop.test", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "who@shop.test", "password": "x"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "admin@shop.test"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "not-an-email", "password": "x"}, http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, r, "POST", "/auth/login", tt.body)
			expectStatus(t, rr, tt.want)
			if resp := decodeResponse(t, rr); resp["success"] != false {
				t.Errorf("success should be false: %v", resp)
			}
		})
	}
}

// --- Me tests ---

func TestMe(t *testing.T) {
	r, _ := setupAuthRouter(t)
	token, err := auth.GenerateToken(testSecret, 3, enum.UserRoleAdmin)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptestRequest(t, "GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := serve(r, req)
	expectStatus(t, rr, http.StatusOK)
	if data := decodeResponse(t, rr)["data"].(map[string]interface{}); data["id"] != float64(3) {
		t.Errorf("data: got %v", data)
	}

	rr = doRequest(t, r, "GET", "/auth/me", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestMe_DeletedUser(t *testing.T) {
	r, _ := setupAuthRouter(t)
	token, err := auth.GenerateToken(testSecret, 42, enum.UserRoleUser)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptestRequest(t, "GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	expectStatus(t, serve(r, req), http.StatusUnauthorized)
}
