package chedraui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// maxResponseSize is the maximum allowed response size from the WCS API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// WCS resource paths, relative to the base URL.
const (
	loginPathTemplate    = "/wcs/resources/store/%s/loginidentity"
	cartPathTemplate     = "/wcs/resources/store/%s/cart"
	cartSelfPathTemplate = "/wcs/resources/store/%s/cart/@self"
	cartItemPathTemplate = "/wcs/resources/store/%s/cart/@self/%s"
	searchPathTemplate   = "/wcs/resources/store/%s/productview/bySearchTerm/%s"
)

// Client implements the cart.Gateway port against the Chedraui WCS
// REST API. WCS sessions ride on cookies, so the client captures every
// Set-Cookie it sees and replays the jar on subsequent requests. It
// logs in lazily and retries exactly once after a 401.
type Client struct {
	config     *Config
	httpClient *http.Client

	mu      sync.Mutex
	cookies map[string]string
	authed  bool
}

// NewClient creates a Chedraui client for one shopper session.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		cookies: make(map[string]string),
	}, nil
}

// Login authenticates against the retailer and stores the session cookies.
func (c *Client) Login(ctx context.Context) error {
	payload := loginRequest{
		LogonID:       c.config.Username,
		LogonPassword: c.config.Password,
	}

	path := fmt.Sprintf(loginPathTemplate, c.config.StoreID)
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, payload, false)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return fmt.Errorf("%w: empty authentication response", cart.ErrAuthFailed)
	}

	c.mu.Lock()
	c.authed = true
	c.mu.Unlock()
	return nil
}

// GetCart retrieves the current cart contents.
func (c *Client) GetCart(ctx context.Context) ([]cart.Item, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf(cartSelfPathTemplate, c.config.StoreID)
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}
	return parseCartItems(body)
}

// AddItem puts a product into the cart and returns the refreshed cart.
func (c *Client) AddItem(ctx context.Context, req cart.AddItemRequest) ([]cart.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	entry := orderItemRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity.String(),
		UOM:       string(req.ResolvedUnit()),
	}
	if req.Weight != nil {
		entry.Weight = req.Weight.String()
	}

	path := fmt.Sprintf(cartPathTemplate, c.config.StoreID)
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, cartRequest{OrderItem: []orderItemRequest{entry}}, true)
	if err != nil {
		return nil, err
	}

	items, err := parseCartItems(body)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: add returned no cart items", cart.ErrRequestFailed)
	}
	return items, nil
}

// UpdateItem changes an existing cart line and returns the refreshed cart.
func (c *Client) UpdateItem(ctx context.Context, req cart.UpdateItemRequest) ([]cart.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	entry := orderItemRequest{
		OrderItemID: req.ItemID,
		Quantity:    req.Quantity.String(),
	}
	if u, ok := req.ResolvedUnit(); ok {
		entry.UOM = string(u)
	}
	if req.Weight != nil {
		entry.Weight = req.Weight.String()
	}

	path := fmt.Sprintf(cartPathTemplate, c.config.StoreID)
	body, err := c.doRequest(ctx, http.MethodPut, path, nil, cartRequest{OrderItem: []orderItemRequest{entry}}, true)
	if err != nil {
		return nil, err
	}
	return parseCartItems(body)
}

// RemoveItem deletes a cart line.
func (c *Client) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", cart.ErrRequestFailed)
	}
	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}

	path := fmt.Sprintf(cartItemPathTemplate, c.config.StoreID, url.PathEscape(itemID))
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil, true)
	if isHTTPStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %s", cart.ErrItemNotFound, itemID)
	}
	return err
}

// SearchProducts queries the catalog by free text.
func (c *Client) SearchProducts(ctx context.Context, req cart.SearchRequest) ([]cart.Product, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("pageSize", fmt.Sprintf("%d", req.Limit))
	query.Set("responseFormat", "json")
	query.Set("pageNumber", "1")
	query.Set("searchType", "keyword")

	path := fmt.Sprintf(searchPathTemplate, c.config.StoreID, url.PathEscape(req.Query))
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(body)
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	authed := c.authed
	c.mu.Unlock()
	if authed {
		return nil
	}
	return c.Login(ctx)
}

// httpStatusError carries an upstream HTTP status so callers can map
// specific codes (404 on delete) without parsing error strings.
type httpStatusError struct {
	status int
	path   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("chedraui: HTTP %d while requesting %s", e.status, e.path)
}

func (e *httpStatusError) Unwrap() error {
	if e.status == http.StatusUnauthorized {
		return cart.ErrAuthFailed
	}
	return cart.ErrRequestFailed
}

func isHTTPStatus(err error, status int) bool {
	var statusErr *httpStatusError
	return errors.As(err, &statusErr) && statusErr.status == status
}

// doRequest performs one HTTP call against the WCS API, replaying the
// cookie jar and absorbing new cookies from the response. On a 401 with
// allowReauth set it re-logs-in once and replays the request.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any, allowReauth bool) ([]byte, error) {
	reqURL := c.config.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("chedraui: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("chedraui: failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.8")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.mu.Lock()
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cart.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("chedraui: failed to read response: %w", err)
	}

	c.storeCookies(resp.Cookies())

	if resp.StatusCode == http.StatusUnauthorized && allowReauth {
		c.mu.Lock()
		c.authed = false
		c.mu.Unlock()
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.doRequest(ctx, method, path, query, payload, false)
	}

	if resp.StatusCode >= 400 {
		return nil, &httpStatusError{status: resp.StatusCode, path: path}
	}

	return body, nil
}

func (c *Client) storeCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range cookies {
		if ck.Value == "" {
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
}

// parseCartItems decodes a cart response, tolerating both the envelope
// and bare-array shapes.
func parseCartItems(body []byte) ([]cart.Item, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []cart.Item{}, nil
	}

	var entries []orderItemEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", cart.ErrInvalidResponse, err)
		}
	} else {
		var envelope cartEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", cart.ErrInvalidResponse, err)
		}
		entries = envelope.entries()
	}

	items := make([]cart.Item, 0, len(entries))
	for _, entry := range entries {
		if entry.itemID() == "" {
			continue
		}
		items = append(items, entry.toDomain())
	}
	return items, nil
}

// parseSearchResults decodes a productview response, tolerating the
// catalogEntryView, product.docs, items, and bare-array shapes.
func parseSearchResults(body []byte) ([]cart.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []cart.Product{}, nil
	}

	var entries []catalogEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", cart.ErrInvalidResponse, err)
		}
	} else {
		var envelope searchEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", cart.ErrInvalidResponse, err)
		}
		entries = envelope.entries()
	}

	products := make([]cart.Product, 0, len(entries))
	for _, entry := range entries {
		if entry.productID() == "" {
			continue
		}
		products = append(products, entry.toDomain())
	}
	return products, nil
}

// Ensure Client implements the gateway port
var _ cart.Gateway = (*Client)(nil)
