package ordersource_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stencil/internal/services/ordersource"
)

func TestFetchProductOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-product-orders" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("product"); got != "SKU-1" {
			t.Errorf("unexpected product %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
            {
                "orderId": "ord-1",
                "orderNumber": "100-1",
                "items": [
                    {"orderItemId": "item-1", "sku": "SKU-1", "quantity": 2,
                     "options": [{"name": "Personalization", "value": "Liam; Emma"}]}
                ]
            }
        ]`))
	}))
	defer server.Close()

	client := ordersource.NewClient(ordersource.Config{BaseURL: server.URL, APIKey: "k"})
	orders, err := client.FetchProductOrders(context.Background(), "SKU-1")
	if err != nil {
		t.Fatalf("FetchProductOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != "ord-1" {
		t.Fatalf("unexpected orders: %#v", orders)
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %#v", orders[0].Items)
	}
}

func TestFetchProductOrdersRejectsNonList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "nope"}`))
	}))
	defer server.Close()

	client := ordersource.NewClient(ordersource.Config{BaseURL: server.URL})
	if _, err := client.FetchProductOrders(context.Background(), "SKU-1"); err == nil {
		t.Fatal("expected decode error for non-list payload")
	}
}

func TestAddTagParsesRateLimitHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/addtag" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("X-Rate-Limit-Remaining", "12")
		w.Header().Set("X-Rate-Limit-Reset", "37")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	client := ordersource.NewClient(ordersource.Config{BaseURL: server.URL, APIKey: "k"})
	limit, err := client.AddTag(context.Background(), "ord-1", 1234)
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if !limit.Known || limit.Remaining != 12 || limit.ResetSeconds != 37 {
		t.Fatalf("unexpected rate limit: %#v", limit)
	}
}

func TestAddTagReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := ordersource.NewClient(ordersource.Config{BaseURL: server.URL})
	if _, err := client.AddTag(context.Background(), "ord-1", 1); err == nil {
		t.Fatal("expected error for http 429")
	}
}

func TestAppendReferenceDoesNotDuplicate(t *testing.T) {
	var sent map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := ordersource.NewClient(ordersource.Config{BaseURL: server.URL})
	err := client.AppendReference(context.Background(), "ord-1", "customField1", "STN-A-0001", "STN-A-0002")
	if err != nil {
		t.Fatalf("AppendReference: %v", err)
	}
	if sent["value"] != "STN-A-0001,STN-A-0002" {
		t.Fatalf("expected appended value, got %v", sent["value"])
	}

	err = client.AppendReference(context.Background(), "ord-1", "customField1", "STN-A-0001,STN-A-0002", "STN-A-0002")
	if err != nil {
		t.Fatalf("AppendReference repeat: %v", err)
	}
	if sent["value"] != "STN-A-0001,STN-A-0002" {
		t.Fatalf("expected no duplicate, got %v", sent["value"])
	}
}

func TestOnlyCustomizedURL(t *testing.T) {
	item := ordersource.OrderItem{Options: []ordersource.ItemOption{{Name: "CustomizedURL", Value: "https://example.com/p/1"}}}
	if !item.OnlyCustomizedURL() {
		t.Fatal("expected CustomizedURL-only item to report true")
	}

	item.Options = append(item.Options, ordersource.ItemOption{Name: "Personalization", Value: "Liam"})
	if item.OnlyCustomizedURL() {
		t.Fatal("item with real options must report false")
	}
}
