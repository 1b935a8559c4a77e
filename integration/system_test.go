//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

func TestSystem_E2E_ReadOnly(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products", "", nil, &products, 200)

	var limited []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products?limit=1", "", nil, &limited, 200)
	if len(products) > 0 && len(limited) != 1 {
		t.Fatalf("limit=1 returned %d products", len(limited))
	}

	var e map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products/999999999", "", nil, &e, 404)
	if e["error"] != "Product not found" {
		t.Fatalf("unexpected 404 body: %#v", e)
	}
}

// Needs the service started with WRITES_ENABLED=true and the matching
// admin password in E2E_ADMIN_PASSWORD.
func TestSystem_E2E_AdminWrites(t *testing.T) {
	pass := os.Getenv("E2E_ADMIN_PASSWORD")
	if pass == "" {
		t.Skip("E2E_ADMIN_PASSWORD not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/auth/token", "", map[string]any{
		"username": getenv("E2E_ADMIN_USERNAME", "admin"),
		"password": pass,
	}, &tok, 200)
	if tok.AccessToken == "" {
		t.Fatalf("empty access_token")
	}

	code := fmt.Sprintf("E2E-%d", time.Now().UnixNano())
	var created map[string]any
	doJSON(t, http.MethodPost, baseURL+"/products", tok.AccessToken, map[string]any{
		"title":       "e2e product",
		"description": "created by the system test",
		"price":       12.5,
		"thumbnail":   "img/e2e.png",
		"code":        code,
		"stock":       3,
	}, &created, 201)

	id, ok := created["id"].(float64)
	if !ok || id < 1 {
		t.Fatalf("id missing in response: %#v", created)
	}
	productURL := fmt.Sprintf("%s/products/%d", baseURL, int64(id))

	var updated map[string]any
	doJSON(t, http.MethodPatch, productURL, tok.AccessToken, map[string]any{"stock": 0}, &updated, 200)
	if updated["id"] != id || updated["code"] != code {
		t.Fatalf("update changed identity: %#v", updated)
	}

	if os.Getenv("E2E_RESTART_CATALOG") == "1" {
		restartService(t, ctx, "catalog")
		waitReady(t, ctx, baseURL+"/readyz")
	}

	var got map[string]any
	doJSON(t, http.MethodGet, productURL, "", nil, &got, 200)
	if got["stock"] != float64(0) {
		t.Fatalf("stock not persisted: %#v", got)
	}

	doJSON(t, http.MethodDelete, productURL, "", nil, nil, 401)
	doJSON(t, http.MethodDelete, productURL, tok.AccessToken, nil, nil, 204)
	doJSON(t, http.MethodGet, productURL, "", nil, nil, 404)
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
