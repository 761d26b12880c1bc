package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"Waffle","price":"6.50","published":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	price, err := c.UnitPrice(context.Background(), 7)

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.50").Equal(price))
}

func TestUnitPrice_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":404,"message":"product not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.UnitPrice(context.Background(), 999)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, int64(999), ue.ProductID)
}

func TestUnitPrice_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.UnitPrice(context.Background(), 1)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
}

func TestUnitPrice_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price":`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.UnitPrice(context.Background(), 1)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
}

func TestUnitPrice_NegativePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price":"-1.00"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.UnitPrice(context.Background(), 1)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
}

func TestUnitPrice_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"price":"6.50"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	_, err := c.UnitPrice(context.Background(), 1)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
}

func TestUnitPrice_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed before use

	c := NewClient(srv.URL, 0)
	_, err := c.UnitPrice(context.Background(), 1)

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
}
