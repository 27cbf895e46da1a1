// Package api is the client-side gateway to the action-dispatch backend.
// It turns typed calls into the GET/POST wire shapes the server expects
// and maps responses back into domain values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"finpro/internal/core"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New builds a gateway for the backend at baseURL. The default HTTP
// client carries no timeout: a hung call leaves the caller loading until
// the user gives up, matching the backend's no-retry contract.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthResult is the outcome of a login or registration attempt. Message
// is only meaningful when Success is false.
type AuthResult struct {
	Success bool
	Message string
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) CheckUser(ctx context.Context, username, password string) (AuthResult, error) {
	q := url.Values{}
	q.Set("action", "checkUser")
	q.Set("username", username)
	q.Set("password", password)

	var resp authResponse
	if err := c.get(ctx, q, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Success: resp.Success, Message: firstNonEmpty(resp.Message, resp.Error)}, nil
}

func (c *Client) Register(ctx context.Context, username, password string) (AuthResult, error) {
	payload := map[string]any{
		"action":   "registerUser",
		"username": username,
		"password": password,
	}
	var resp authResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Success: resp.Success, Message: firstNonEmpty(resp.Message, resp.Error)}, nil
}

// Transactions fetches the full transaction set for username, newest
// first. Missing or malformed fields fall back to defaults instead of
// failing the whole load.
func (c *Client) Transactions(ctx context.Context, username string) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("action", "getData")
	q.Set("username", username)

	var items []map[string]any
	if err := c.get(ctx, q, &items); err != nil {
		return nil, err
	}

	txs := make([]core.Transaction, 0, len(items))
	for _, item := range items {
		txs = append(txs, transactionFromItem(item))
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return parseDate(txs[i].Date).After(parseDate(txs[j].Date))
	})
	return txs, nil
}

func transactionFromItem(item map[string]any) core.Transaction {
	tx := core.Transaction{
		Username:    str(item["Username"]),
		Date:        str(item["Date"]),
		Description: str(item["Description"]),
		Amount:      core.CoerceAmount(item["Amount"]),
		Type:        core.TransactionType(str(item["Type"])),
		Method:      core.PaymentMethod(str(item["Method"])),
		Card:        str(item["Card"]),
		Category:    str(item["Category"]),
	}
	if idx, ok := item["_rowIndex"].(float64); ok {
		tx.RowIndex = int(idx)
	}
	if tx.Type != core.Income {
		tx.Type = core.Expense
	}
	if tx.Method != core.Debit {
		tx.Method = core.Credit
	}
	tx.Card = core.CardByID(tx.Card).ID
	if tx.Category == "" {
		tx.Category = "General"
	}
	return tx
}

// Save creates or updates a transaction. A zero RowIndex means the
// transaction was never persisted and dispatches add; anything else
// dispatches update at that row. A stored row can therefore never report
// index zero, which holds because the header occupies row one.
func (c *Client) Save(ctx context.Context, tx core.Transaction) error {
	action := "update"
	if tx.RowIndex == 0 {
		action = "add"
	}
	payload := map[string]any{
		"action":      action,
		"username":    tx.Username,
		"rowIndex":    tx.RowIndex,
		"date":        tx.Date,
		"description": tx.Description,
		"amount":      tx.Amount,
		"type":        string(tx.Type),
		"method":      string(tx.Method),
		"card":        tx.Card,
		"category":    tx.Category,
	}

	var resp authResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("saving transaction: %s", firstNonEmpty(resp.Message, resp.Error, "unknown error"))
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, username string, rowIndex int) error {
	payload := map[string]any{
		"action":   "delete",
		"username": username,
		"rowIndex": rowIndex,
	}
	var resp authResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("deleting transaction: %s", firstNonEmpty(resp.Message, resp.Error, "unknown error"))
	}
	return nil
}

const insightsSystemPrompt = "You are a personal finance advisor. Analyze the user's transactions and give 3 short, direct insights about spending patterns or where they could save. Be friendly but professional. Use emojis."

// Insights asks the completion proxy for spending insights over the 50
// most recent transactions.
func (c *Client) Insights(ctx context.Context, txs []core.Transaction) (string, error) {
	if len(txs) > 50 {
		txs = txs[:50]
	}
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, fmt.Sprintf("%s: %s - $%s (%s, %s)",
			tx.Date, tx.Description, core.FormatAmount(tx.Amount), tx.Type, tx.Card))
	}

	payload := map[string]any{
		"action": "callGroq",
		"messages": []map[string]string{
			{"role": "system", "content": insightsSystemPrompt},
			{"role": "user", "content": "My recent transactions:\n" + strings.Join(lines, "\n")},
		},
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error string `json:"error"`
	}
	if err := c.post(ctx, payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generating insights: %s", resp.Error)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generating insights: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) get(ctx context.Context, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
