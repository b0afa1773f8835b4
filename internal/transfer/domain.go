// Package transfer implements the inventory-transfer list engine: filter
// validation, the authenticated upstream client with bounded credential
// retry, and the Pending/Completed/Cancelled state machine.
package transfer

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an inventory transfer.
type Status string

const (
	// StatusPending is the sole initial state.
	StatusPending Status = "Pending"
	// StatusCompleted is terminal.
	StatusCompleted Status = "Completed"
	// StatusCancelled is terminal.
	StatusCancelled Status = "Cancelled"
)

// Final reports whether no further transitions are permitted.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Action is a requested transition on a pending transfer.
type Action string

const (
	// ActionComplete moves Pending to Completed.
	ActionComplete Action = "complete"
	// ActionCancel moves Pending to Cancelled.
	ActionCancel Action = "cancel"
)

// TransferItem is one line of a transfer. Immutable once attached.
type TransferItem struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	GST      float64 `json:"gst"`
}

// LineTotal is quantity*price plus GST.
func (i TransferItem) LineTotal() float64 {
	return float64(i.Quantity)*i.Price + i.GST
}

// InventoryTransfer records inventory moved between two store locations.
// Status is the only field that changes after creation.
type InventoryTransfer struct {
	ID              int64          `json:"id"`
	TransferID      string         `json:"transfer_id"`
	Status          Status         `json:"status"`
	FromStore       string         `json:"from_store"`
	ToStore         string         `json:"to_store"`
	Type            string         `json:"type"`
	TransactionDate time.Time      `json:"transaction_date"`
	CreatedBy       string         `json:"created_by"`
	Items           []TransferItem `json:"items"`
}

var (
	// ErrUpdateInFlight rejects a mutation while another one is active.
	ErrUpdateInFlight = errors.New("transfer: wait for the current operation to complete")
	// ErrTransferFinal rejects transitions out of a terminal state.
	ErrTransferFinal = errors.New("transfer: only pending transfers can be updated")
	// ErrTransferNotFound indicates the id is not in the loaded list.
	ErrTransferNotFound = errors.New("transfer: not found")
	// ErrUnknownConfirmation rejects a cancel confirmation with no matching token.
	ErrUnknownConfirmation = errors.New("transfer: unknown or expired confirmation token")
	// ErrBadRequest is the upstream's non-retryable validation rejection.
	ErrBadRequest = errors.New("transfer: invalid request parameters")
	// ErrCredentialRequired asks the caller to supply a replacement API key.
	ErrCredentialRequired = errors.New("transfer: credential rejected, replacement required")
	// ErrAuthRetryExhausted is the terminal auth failure after the retry budget.
	ErrAuthRetryExhausted = errors.New("transfer: maximum credential retries reached")
	// ErrUpstream covers 5xx and malformed upstream responses.
	ErrUpstream = errors.New("transfer: upstream error")
	// ErrNetwork covers transport-level failures.
	ErrNetwork = errors.New("transfer: network failure")
	// ErrEmptyCredential rejects a blank replacement API key.
	ErrEmptyCredential = errors.New("transfer: api key must not be empty")
)
