package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/partsync/partsync/internal/observability"
	"github.com/partsync/partsync/internal/ops"
	"github.com/partsync/partsync/internal/shared"
)

// Outcome is the exhaustive classification of an upstream response. Callers
// switch on it instead of re-inspecting status codes.
type Outcome string

const (
	// OutcomeSuccess is a 200 with a well-formed success envelope.
	OutcomeSuccess Outcome = "success"
	// OutcomeBadRequest is a 400; non-retryable, surfaced to the user.
	OutcomeBadRequest Outcome = "bad_request"
	// OutcomeUnauthorized is a retry-eligible 401; a replacement credential
	// should be supplied before the next attempt.
	OutcomeUnauthorized Outcome = "unauthorized"
	// OutcomeAuthExhausted is the terminal auth failure after the retry budget.
	OutcomeAuthExhausted Outcome = "auth_exhausted"
	// OutcomeServerError covers malformed envelopes and unexpected statuses.
	OutcomeServerError Outcome = "server_error"
	// OutcomeNetworkError is a transport-level failure with no response.
	OutcomeNetworkError Outcome = "network_error"
)

// maxCredentialRetries bounds the 401 re-entry flow.
const maxCredentialRetries = 3

// ListResult is the classified outcome of a transfer list fetch.
type ListResult struct {
	Outcome    Outcome
	Transfers  []InventoryTransfer
	Pagination shared.Pagination
	Message    string
}

// UpdateResult is the classified outcome of a transfer mutation.
type UpdateResult struct {
	Outcome Outcome
	Message string
}

// Client issues authenticated requests against the inventory-transfer API and
// drives the bounded API-key re-entry flow. The credential and retry counter
// are the only mutable state; both are guarded for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	reporter   ops.Reporter
	metrics    *observability.Metrics

	mu            sync.Mutex
	apiKey        string
	retryAttempts int
}

// ClientConfig groups Client dependencies.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
	// Reporter receives auth-exhaustion, server and network failures for
	// operational visibility. Optional.
	Reporter ops.Reporter
	Metrics  *observability.Metrics
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
		reporter:   cfg.Reporter,
		metrics:    cfg.Metrics,
		apiKey:     cfg.APIKey,
	}
}

// Credential returns the current API key.
func (c *Client) Credential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKey
}

// SetCredential swaps in a replacement API key for the next attempt. The
// retry counter is deliberately left untouched until that attempt succeeds.
func (c *Client) SetCredential(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = apiKey
}

// RetryAttempts returns the current retry counter.
func (c *Client) RetryAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryAttempts
}

// CancelCredentialPrompt abandons the re-entry flow and resets the retry
// counter so a later independent attempt starts with a full budget.
func (c *Client) CancelCredentialPrompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryAttempts = 0
}

type listEnvelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		InventoryTransferListData []InventoryTransfer `json:"inventoryTransferListData"`
		Pagination                shared.Pagination   `json:"pagination"`
	} `json:"data"`
}

type badRequestEnvelope struct {
	Error string `json:"error"`
}

type unauthorizedEnvelope struct {
	Success    *bool  `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		Message string `json:"message"`
	} `json:"data"`
}

type messageEnvelope struct {
	Message string `json:"message"`
}

// List fetches one page of transfers, classifying the response by status code
// into exactly one outcome.
func (c *Client) List(ctx context.Context, f Filter, page, perPage int) ListResult {
	query := url.Values{}
	query.Set("api_key", c.Credential())
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	f.Query(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/inventorytransfer?"+query.Encode(), nil)
	if err != nil {
		return c.networkFailure("list", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkFailure("list", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result := c.classifyList(ctx, resp)
	if c.metrics != nil {
		c.metrics.IncFetchResponse(string(result.Outcome))
	}
	return result
}

func (c *Client) classifyList(ctx context.Context, resp *http.Response) ListResult {
	switch resp.StatusCode {
	case http.StatusOK:
		var env listEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Success && env.StatusCode == http.StatusOK {
			c.mu.Lock()
			c.retryAttempts = 0
			c.mu.Unlock()
			return ListResult{
				Outcome:    OutcomeSuccess,
				Transfers:  env.Data.InventoryTransferListData,
				Pagination: env.Data.Pagination,
			}
		}
		return c.serverFailure(ctx, resp.StatusCode, "Unexpected response format")

	case http.StatusBadRequest:
		var env badRequestEnvelope
		msg := "Invalid request parameters"
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			msg = env.Error
		}
		// No retry-counter change: the request itself was malformed.
		return ListResult{Outcome: OutcomeBadRequest, Message: msg}

	case http.StatusUnauthorized:
		var env unauthorizedEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Success == nil || *env.Success || env.StatusCode != http.StatusUnauthorized {
			return c.serverFailure(ctx, resp.StatusCode, "Unexpected 401 response format")
		}
		msg := env.Data.Message
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "Unauthorized access"
		}
		return c.classifyUnauthorized(ctx, msg)

	default:
		var env messageEnvelope
		msg := fmt.Sprintf("Server error (%d)", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
			msg = env.Message
		}
		return c.serverFailure(ctx, resp.StatusCode, msg)
	}
}

// classifyUnauthorized advances the bounded retry flow. The increment that
// reaches the budget is declared terminal immediately, so the counter never
// exceeds maxCredentialRetries and no fourth prompt is issued.
func (c *Client) classifyUnauthorized(ctx context.Context, msg string) ListResult {
	c.mu.Lock()
	if c.retryAttempts < maxCredentialRetries {
		c.retryAttempts++
	}
	attempts := c.retryAttempts
	c.mu.Unlock()

	if attempts >= maxCredentialRetries {
		if c.metrics != nil {
			c.metrics.IncAuthExhausted()
		}
		c.report(ctx, ops.Event{
			Kind:    "auth_retry_exhausted",
			Message: "401 Unauthorized - max retries exceeded",
			Fields:  map[string]any{"retry_attempts": attempts},
		})
		return ListResult{Outcome: OutcomeAuthExhausted, Message: msg}
	}
	return ListResult{Outcome: OutcomeUnauthorized, Message: msg}
}

func (c *Client) serverFailure(ctx context.Context, status int, msg string) ListResult {
	c.report(ctx, ops.Event{
		Kind:    "upstream_error",
		Message: msg,
		Fields:  map[string]any{"status": status},
	})
	return ListResult{Outcome: OutcomeServerError, Message: msg}
}

func (c *Client) networkFailure(op string, err error) ListResult {
	c.logger.Error("transfer fetch failed", slog.String("op", op), slog.Any("error", err))
	c.report(context.Background(), ops.Event{
		Kind:    "network_error",
		Message: err.Error(),
		Fields:  map[string]any{"op": op},
	})
	if c.metrics != nil {
		c.metrics.IncFetchResponse(string(OutcomeNetworkError))
	}
	return ListResult{Outcome: OutcomeNetworkError, Message: "Failed to load inventory transfers"}
}

type updateRequest struct {
	APIKey     string `json:"api_key"`
	TransferID int64  `json:"transfer_id"`
	Action     Action `json:"action"`
}

type updateEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Update issues the complete/cancel mutation for a single transfer.
func (c *Client) Update(ctx context.Context, transferID int64, action Action) UpdateResult {
	body, err := json.Marshal(updateRequest{APIKey: c.Credential(), TransferID: transferID, Action: action})
	if err != nil {
		return UpdateResult{Outcome: OutcomeNetworkError, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/inventorytransfer", bytes.NewReader(body))
	if err != nil {
		return c.updateNetworkFailure(transferID, action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.updateNetworkFailure(transferID, action, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env updateEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < http.StatusMultipleChoices && decodeErr == nil && env.Success {
		return UpdateResult{Outcome: OutcomeSuccess, Message: env.Message}
	}

	msg := env.Message
	if msg == "" {
		msg = fmt.Sprintf("Failed to %s transfer", action)
	}
	c.report(ctx, ops.Event{
		Kind:    "transfer_update_failed",
		Message: msg,
		Fields:  map[string]any{"transfer_id": transferID, "action": string(action), "status": resp.StatusCode},
	})
	return UpdateResult{Outcome: OutcomeServerError, Message: msg}
}

func (c *Client) updateNetworkFailure(transferID int64, action Action, err error) UpdateResult {
	c.logger.Error("transfer update failed", slog.Int64("transfer_id", transferID), slog.Any("error", err))
	c.report(context.Background(), ops.Event{
		Kind:    "network_error",
		Message: err.Error(),
		Fields:  map[string]any{"transfer_id": transferID, "action": string(action)},
	})
	return UpdateResult{Outcome: OutcomeNetworkError, Message: "Network error occurred. Please try again."}
}

func (c *Client) report(ctx context.Context, event ops.Event) {
	if c.reporter != nil {
		event.ReportedAt = time.Now().UTC()
		c.reporter.Report(ctx, event)
	}
}
