package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/base2-shop/api/internal/handler"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	rr := doRequest(t, handler.Health(stubPinger{}), "GET", "/api/health", nil)
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["status"] != "ok" || resp["database"] != "ok" {
		t.Errorf("body: got %v", resp)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	rr := doRequest(t, handler.Health(stubPinger{err: errors.New("dial tcp: refused")}), "GET", "/api/health", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if resp := decodeResponse(t, rr); resp["database"] != "unreachable" {
		t.Errorf("body: got %v", resp)
	}
}
