// Package client is the Go SDK for the receipt pipeline API. It carries its
// own wire types so frontends depend only on this package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrReceiptProcessed = errors.New("receipt already processed")
)

// Receipt mirrors the server's receipt representation. An empty ProcessedAt
// means the receipt is still in the unprocessed queue.
type Receipt struct {
	ID                  string `json:"id"`
	ContentType         string `json:"content_type"`
	FileSizeBytes       int64  `json:"file_size_bytes"`
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key,omitempty"`
	OriginalFileName    string `json:"original_file_name"`
	PropertyID          string `json:"property_id,omitempty"`
	PropertyName        string `json:"property_name,omitempty"`
	CreatedAt           string `json:"created_at"`
	ProcessedAt         string `json:"processed_at,omitempty"`
	ViewURL             string `json:"view_url,omitempty"`
	ThumbnailURL        string `json:"thumbnail_url,omitempty"`
}

// Processed reports whether another session already converted this receipt.
func (r *Receipt) Processed() bool {
	return r.ProcessedAt != ""
}

// CaptureDate returns the receipt's capture date in YYYY-MM-DD form, used to
// pre-seed the expense form.
func (r *Receipt) CaptureDate() string {
	t, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

type ReceiptQueue struct {
	Items      []Receipt `json:"items"`
	TotalCount int       `json:"total_count"`
}

type UploadGrant struct {
	UploadURL           string `json:"upload_url"`
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key"`
	ExpiresAt           string `json:"expires_at"`
}

type GrantInput struct {
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id"`
	ContentType   string `json:"content_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	FileName      string `json:"file_name"`
}

type ConfirmInput struct {
	StorageKey          string `json:"storage_key"`
	ThumbnailStorageKey string `json:"thumbnail_storage_key"`
	ContentType         string `json:"content_type"`
	FileSizeBytes       int64  `json:"file_size_bytes"`
	OriginalFileName    string `json:"original_file_name"`
	PropertyID          string `json:"property_id,omitempty"`
}

type Expense struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	ReceiptID   string  `json:"receipt_id,omitempty"`
	WorkOrderID string  `json:"work_order_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type CreateExpenseInput struct {
	PropertyID  string  `json:"property_id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	ReceiptID   string  `json:"receipt_id,omitempty"`
	WorkOrderID string  `json:"work_order_id,omitempty"`
}

type DuplicateCheck struct {
	IsDuplicate     bool     `json:"is_duplicate"`
	ExistingExpense *Expense `json:"existing_expense,omitempty"`
}

// Client is a thin HTTP wrapper over the pipeline API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WebSocketURL returns the realtime endpoint with the auth token attached as
// a query parameter (browsers cannot set headers on upgrade requests).
func (c *Client) WebSocketURL() string {
	wsBase := strings.Replace(c.baseURL, "http", "ws", 1)
	return wsBase + "/api/v1/ws?token=" + url.QueryEscape(c.token)
}

func (c *Client) RequestUploadGrant(ctx context.Context, in GrantInput) (*UploadGrant, error) {
	var grant UploadGrant
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/grants", in, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) ConfirmUpload(ctx context.Context, in ConfirmInput) (*Receipt, error) {
	var receipt Receipt
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/confirm", in, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) UnprocessedReceipts(ctx context.Context) (*ReceiptQueue, error) {
	var queue ReceiptQueue
	if err := c.do(ctx, http.MethodGet, "/api/v1/receipts/unprocessed", nil, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

func (c *Client) Receipt(ctx context.Context, id string) (*Receipt, error) {
	var receipt Receipt
	if err := c.do(ctx, http.MethodGet, "/api/v1/receipts/"+url.PathEscape(id), nil, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) DeleteReceipt(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/receipts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error) {
	var expense Expense
	if err := c.do(ctx, http.MethodPost, "/api/v1/expenses", in, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (c *Client) CheckDuplicateExpense(ctx context.Context, propertyID string, amount float64, date string) (*DuplicateCheck, error) {
	query := url.Values{}
	query.Set("property_id", propertyID)
	query.Set("amount", strconv.FormatFloat(amount, 'f', 2, 64))
	query.Set("date", date)

	var check DuplicateCheck
	if err := c.do(ctx, http.MethodGet, "/api/v1/expenses/duplicate-check?"+query.Encode(), nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func apiError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrReceiptProcessed
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("api error (%d)", resp.StatusCode)
}
