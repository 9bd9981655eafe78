package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/base2-shop/api/internal/auth"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/enum"
	"github.com/base2-shop/api/internal/middleware"
)

const testSecret = "test-secret"

// --- Helpers ---

func makeNumeric(s string, places int32) pgtype.Numeric {
	return database.DecimalToNumeric(decimal.RequireFromString(s), places)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequestCtx(t, h, context.Background(), method, path, body)
}

func doRequestCtx(t *testing.T, h http.Handler, ctx context.Context, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return serve(h, httptestRequest(t, method, path, body).WithContext(ctx))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func httptestRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func adminContext() context.Context {
	return middleware.WithPrincipal(context.Background(), auth.Authenticated{ID: 7, Role: enum.UserRoleAdmin})
}
