package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

const cartBody = `{"status_code":0,"msg":"success","data":{"id":"c-1","total":"130.00","items":[
{"id":11,"product_id":"p-50","name":"Mug","unit_price":50,"original_price":{"valor":55},"quantity":1,"image_url":"https://img/m.png","category":"Kitchen"},
{"id":"12","product_id":77,"name":"Cup","unit_price":"40.00","quantity":2,"image_url":"","category":"Kitchen"}]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL: srv.URL + "/api/v1/",
		Timeout: time.Second,
		Breaker: BreakerSettings{
			Name:         "test_" + strings.ReplaceAll(t.Name(), "/", "_"),
			MaxRequests:  1,
			Timeout:      time.Minute,
			FailureRatio: 0.5,
			MinRequests:  2,
		},
	})
	return client, srv
}

func TestFetchCartNormalizesPrices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/cart" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_, _ = io.WriteString(w, cartBody)
	})

	snapshot, err := client.WithToken(" tok-1 ").FetchCart(context.Background())
	if err != nil {
		t.Fatalf("fetch cart failed: %v", err)
	}
	if snapshot.ID != "c-1" || len(snapshot.Lines) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	first := snapshot.Lines[0]
	if first.RemoteLineID != "11" || first.UnitPrice.String() != "50.00" || first.OriginalUnitPrice.String() != "55.00" {
		t.Fatalf("unexpected first line: %+v", first)
	}
	second := snapshot.Lines[1]
	if second.ProductID != "77" || second.UnitPrice.String() != "40.00" || !second.OriginalUnitPrice.Equal(second.UnitPrice) {
		t.Fatalf("unexpected second line: %+v", second)
	}
	if snapshot.Total.String() != "130.00" {
		t.Fatalf("unexpected total: %s", snapshot.Total)
	}
}

func TestFetchCartNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"status_code":404,"msg":"cart not found"}`)
	})
	if _, err := client.FetchCart(context.Background()); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestAddLineSendsBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/cart/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body addLineRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		if body.ProductID != "p-50" || body.Quantity != 3 {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = io.WriteString(w, cartBody)
	})
	if _, err := client.AddLine(context.Background(), "p-50", 3); err != nil {
		t.Fatalf("add line failed: %v", err)
	}
}

func TestUpdateAndRemoveUseLineID(t *testing.T) {
	var seen []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{"status_code":0,"msg":"success","data":null}`)
	})
	ctx := context.Background()
	if _, err := client.UpdateLine(ctx, "11", 4); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := client.RemoveLine(ctx, "11"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	snapshot, err := client.Clear(ctx)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !snapshot.IsEmpty() {
		t.Fatalf("null data should map to empty snapshot")
	}
	want := []string{"PUT /api/v1/cart/items/11", "DELETE /api/v1/cart/items/11", "DELETE /api/v1/cart"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected requests: %v", seen)
	}
}

func TestEnvelopeErrorUsesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status_code":4001,"msg":"Produto sem estoque"}`)
	})
	_, err := client.AddLine(context.Background(), "p-1", 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 4001 {
		t.Fatalf("expected api error, got %v", err)
	}
	if got := UserMessage(err, "fallback"); got != "Produto sem estoque" {
		t.Fatalf("unexpected user message: %s", got)
	}
	if got := UserMessage(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("unexpected fallback message: %s", got)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status_code":400,"msg":"bad quantity"}`)
	})
	for i := 0; i < 5; i++ {
		_, err := client.UpdateLine(context.Background(), "1", 0)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
			t.Fatalf("expected 400 api error, got %v", err)
		}
	}
	if client.BreakerState() != gobreaker.StateClosed {
		t.Fatalf("4xx responses should not open the breaker")
	}
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.FetchCart(ctx)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.ServerFault() {
			t.Fatalf("expected server fault, got %v", err)
		}
	}
	_, err := client.FetchCart(ctx)
	if !IsTransport(err) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker transport error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("open breaker should short-circuit, calls=%d", calls)
	}
}

func TestTransportFailure(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()
	_, err := client.FetchCart(context.Background())
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := UserMessage(err, "Falha de conexão"); got != "Falha de conexão" {
		t.Fatalf("transport errors should use fallback message, got %s", got)
	}
}

func TestMalformedBodyIsTransportError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	})
	if _, err := client.FetchCart(context.Background()); !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
