// Package catalog talks to the master-data service: the read-only product,
// supplier and reference-data lookups the pipeline consumes.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"chandler/internal"
	"chandler/internal/config"
	"chandler/internal/errs"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type productScrollPayload struct {
	Products []map[string]any `json:"products"`
	ScrollID *string          `json:"scrollId"`
}

type supplierPayload struct {
	Suppliers []map[string]any `json:"suppliers"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.MasterDataTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.MasterDataRateLimit),
	}
}

// ProductsByCategory fetches the candidate products for one category. An empty
// category returns the full catalog via scroll pagination.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]internal.CatalogProduct, error) {
	params := map[string]string{}
	if strings.TrimSpace(category) != "" {
		params["category"] = category
	}
	return c.productsScroll(ctx, params)
}

func (c *Client) AllProducts(ctx context.Context) ([]internal.CatalogProduct, error) {
	return c.productsScroll(ctx, map[string]string{})
}

func (c *Client) productsScroll(ctx context.Context, params map[string]string) ([]internal.CatalogProduct, error) {
	all := make([]internal.CatalogProduct, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "product/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload productScrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, eris.Wrap(err, "catalog: decode product scroll")
		}

		for _, raw := range payload.Products {
			product, err := toCatalogProduct(raw)
			if err != nil {
				continue
			}
			all = append(all, product)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

// SuppliersByCategory fetches the active suppliers serving one category. An
// empty category returns every supplier.
func (c *Client) SuppliersByCategory(ctx context.Context, category string) ([]internal.SupplierRecord, error) {
	params := map[string]string{}
	if strings.TrimSpace(category) != "" {
		params["category"] = category
	}

	body, err := c.fetchJSON(ctx, "supplier/list", params)
	if err != nil {
		return nil, err
	}

	var payload supplierPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "catalog: decode supplier list")
	}

	out := make([]internal.SupplierRecord, 0, len(payload.Suppliers))
	for _, raw := range payload.Suppliers {
		supplier, err := toSupplierRecord(raw)
		if err != nil {
			continue
		}
		out = append(out, supplier)
	}
	return out, nil
}

func (c *Client) fetchJSON(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	base := strings.TrimRight(c.cfg.MasterDataBaseURL, "/")
	endpoint := fmt.Sprintf("%s/%s", base, path)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<attempt))*time.Millisecond + time.Duration(rand.Intn(250))*time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		c.limiter.WaitTurn()

		reqURL := endpoint
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.MasterDataToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		blob, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("masterdata %s: status %d", path, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &errs.NetworkError{Op: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(blob), 200))}
		}

		var envelope apiResponse
		if err := json.Unmarshal(blob, &envelope); err != nil {
			return nil, eris.Wrap(err, "catalog: decode envelope")
		}
		if !envelope.Success {
			return nil, &errs.NetworkError{Op: path, Err: fmt.Errorf("api error: %s", envelope.Message)}
		}
		return envelope.Data, nil
	}

	return nil, &errs.NetworkError{Op: path, Err: lastErr}
}

func toCatalogProduct(raw map[string]any) (internal.CatalogProduct, error) {
	p := internal.CatalogProduct{}

	id, ok := asInt(raw["id"])
	if !ok {
		return p, fmt.Errorf("product without id")
	}
	p.ID = id

	name, _ := raw["name"].(string)
	if strings.TrimSpace(name) == "" {
		return p, fmt.Errorf("product without name")
	}
	p.Name = name

	code, _ := raw["code"].(string)
	p.Code = code
	p.SyncUID = asStringPtr(raw["syncUid"])
	p.AltName = asStringPtr(raw["altName"])
	if category, ok := raw["category"].(string); ok {
		p.Category = category
	}
	p.Unit = asStringPtr(raw["unit"])
	p.UpdatedAt = asStringPtr(raw["updatedAt"])

	if priceRaw, ok := raw["listPrice"]; ok && priceRaw != nil {
		if f, ok := priceRaw.(float64); ok {
			dec := decimal.NewFromFloat(f)
			p.ListPrice = &dec
		}
		if s, ok := priceRaw.(string); ok {
			if dec, err := decimal.NewFromString(s); err == nil {
				p.ListPrice = &dec
			}
		}
	}

	blob, _ := json.Marshal(raw)
	p.RawJSON = string(blob)
	return p, nil
}

func toSupplierRecord(raw map[string]any) (internal.SupplierRecord, error) {
	s := internal.SupplierRecord{}

	id, ok := asInt(raw["id"])
	if !ok {
		return s, fmt.Errorf("supplier without id")
	}
	s.ID = id

	name, _ := raw["name"].(string)
	if strings.TrimSpace(name) == "" {
		return s, fmt.Errorf("supplier without name")
	}
	s.Name = name

	email, _ := raw["email"].(string)
	s.Email = email
	s.SyncUID = asStringPtr(raw["syncUid"])

	if active, ok := raw["active"].(bool); ok {
		s.Active = active
	} else {
		s.Active = true
	}

	if ccRaw, ok := raw["cc"].([]any); ok {
		for _, v := range ccRaw {
			if addr, ok := v.(string); ok {
				s.CC = append(s.CC, addr)
			}
		}
	}
	if catRaw, ok := raw["categories"].([]any); ok {
		for _, v := range catRaw {
			if cat, ok := v.(string); ok {
				s.Categories = append(s.Categories, cat)
			}
		}
	}

	blob, _ := json.Marshal(raw)
	s.RawJSON = string(blob)
	return s, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return &s
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
