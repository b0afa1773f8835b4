package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/partsync/partsync/internal/observability"
	"github.com/partsync/partsync/internal/ops"
	"github.com/partsync/partsync/internal/shared"
)

// ListClient abstracts the upstream client for the Manager.
type ListClient interface {
	List(ctx context.Context, f Filter, page, perPage int) ListResult
	Update(ctx context.Context, transferID int64, action Action) UpdateResult
	Credential() string
	SetCredential(apiKey string)
	CancelCredentialPrompt()
}

// Manager owns the in-memory transfer list and drives the state machine over
// it. A single in-flight flag scoped to the whole list serializes mutations:
// while one complete/cancel is active, any further request for any transfer
// is rejected rather than queued.
type Manager struct {
	client    ListClient
	validator *FilterValidator
	messenger ops.Messenger
	logger    *slog.Logger
	metrics   *observability.Metrics
	perPage   int

	mu            sync.Mutex
	transfers     []InventoryTransfer
	pagination    shared.Pagination
	filter        Filter
	selected      *InventoryTransfer
	updating      bool
	updatingID    int64
	confirmations map[uuid.UUID]int64
}

// ManagerConfig groups Manager dependencies.
type ManagerConfig struct {
	Client    ListClient
	Messenger ops.Messenger
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	PerPage   int
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Messenger == nil {
		cfg.Messenger = ops.NewLogMessenger(cfg.Logger)
	}
	return &Manager{
		client:        cfg.Client,
		validator:     NewFilterValidator(),
		messenger:     cfg.Messenger,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		perPage:       cfg.PerPage,
		pagination:    shared.Pagination{Page: 1, PerPage: cfg.PerPage},
		confirmations: make(map[uuid.UUID]int64),
	}
}

// Refresh re-fetches the current page with the current filter.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	page := m.pagination.Page
	m.mu.Unlock()
	if page < 1 {
		page = 1
	}
	return m.fetchPage(ctx, page)
}

// ApplyFilters validates the filter against the current credential and, when
// clean, stores it and fetches page one. A non-empty violation list blocks
// the network call; every message is returned, not just the first.
func (m *Manager) ApplyFilters(ctx context.Context, f Filter) ([]string, error) {
	violations := m.validator.Validate(f, m.client.Credential())
	if len(violations) > 0 {
		m.messenger.Error("Please fix the validation errors before applying filters")
		return violations, nil
	}
	m.mu.Lock()
	m.filter = f.normalized()
	m.mu.Unlock()
	return nil, m.fetchPage(ctx, 1)
}

// ClearFilters resets the filter and reloads page one.
func (m *Manager) ClearFilters(ctx context.Context) error {
	m.mu.Lock()
	m.filter = Filter{}
	m.mu.Unlock()
	return m.fetchPage(ctx, 1)
}

// ChangePage moves to the requested page when it is within the known range.
// Out-of-range requests are ignored, mirroring the reference behavior.
func (m *Manager) ChangePage(ctx context.Context, page int) (bool, error) {
	m.mu.Lock()
	total := m.pagination.TotalPages
	m.mu.Unlock()
	if page < 1 || page > total {
		return false, nil
	}
	return true, m.fetchPage(ctx, page)
}

// SupplyCredential installs a user-provided replacement API key and issues
// exactly one retry. The retry counter is not reset here; only a successful
// response resets it.
func (m *Manager) SupplyCredential(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		m.messenger.Error("Please enter a valid API key")
		return ErrEmptyCredential
	}
	m.client.SetCredential(apiKey)
	return m.fetchPage(ctx, 1)
}

// CancelCredentialPrompt abandons the re-entry flow, restoring a full retry
// budget for the next independent attempt.
func (m *Manager) CancelCredentialPrompt() {
	m.client.CancelCredentialPrompt()
	m.messenger.Info("API key update cancelled")
}

func (m *Manager) fetchPage(ctx context.Context, page int) error {
	m.mu.Lock()
	f := m.filter
	perPage := m.perPage
	m.mu.Unlock()

	res := m.client.List(ctx, f, page, perPage)
	switch res.Outcome {
	case OutcomeSuccess:
		m.mu.Lock()
		m.transfers = res.Transfers
		if res.Pagination.PerPage > 0 {
			m.pagination = res.Pagination
		} else {
			m.pagination.Page = page
		}
		m.syncSelectedLocked()
		m.mu.Unlock()
		m.messenger.Success(fmt.Sprintf("Retrieved %d inventory transfers", len(res.Transfers)))
		return nil

	case OutcomeBadRequest:
		m.messenger.Error("Error: " + res.Message)
		m.messenger.Info("Please check your parameter values and try again")
		return fmt.Errorf("%w: %s", ErrBadRequest, res.Message)

	case OutcomeUnauthorized:
		m.messenger.Error("Unauthorized: " + res.Message + ". Please provide a new API key.")
		return ErrCredentialRequired

	case OutcomeAuthExhausted:
		m.messenger.Error("Maximum retry attempts reached. Please check your credentials.")
		return ErrAuthRetryExhausted

	case OutcomeNetworkError:
		m.messenger.Error(res.Message)
		return ErrNetwork

	default:
		m.messenger.Error("Server error: " + res.Message)
		return fmt.Errorf("%w: %s", ErrUpstream, res.Message)
	}
}

// Complete transitions a pending transfer to Completed.
func (m *Manager) Complete(ctx context.Context, transferID int64) error {
	return m.update(ctx, transferID, ActionComplete)
}

// RequestCancel starts the two-step cancel protocol and returns a
// confirmation token. The destructive call is only issued by ConfirmCancel.
func (m *Manager) RequestCancel(transferID int64) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating {
		m.messenger.Warning("Please wait for the current operation to complete")
		return uuid.Nil, ErrUpdateInFlight
	}
	t, ok := m.findLocked(transferID)
	if !ok {
		return uuid.Nil, ErrTransferNotFound
	}
	if t.Status.Final() {
		return uuid.Nil, ErrTransferFinal
	}
	token := uuid.New()
	m.confirmations[token] = transferID
	return token, nil
}

// ConfirmCancel consumes a confirmation token and performs the cancellation.
func (m *Manager) ConfirmCancel(ctx context.Context, token uuid.UUID) error {
	m.mu.Lock()
	transferID, ok := m.confirmations[token]
	delete(m.confirmations, token)
	m.mu.Unlock()
	if !ok {
		return ErrUnknownConfirmation
	}
	return m.update(ctx, transferID, ActionCancel)
}

// AbandonCancel discards a pending confirmation token without acting on it.
func (m *Manager) AbandonCancel(token uuid.UUID) {
	m.mu.Lock()
	delete(m.confirmations, token)
	m.mu.Unlock()
}

func (m *Manager) update(ctx context.Context, transferID int64, action Action) error {
	m.mu.Lock()
	if m.updating {
		m.mu.Unlock()
		m.messenger.Warning("Please wait for the current operation to complete")
		return ErrUpdateInFlight
	}
	t, ok := m.findLocked(transferID)
	if !ok {
		m.mu.Unlock()
		return ErrTransferNotFound
	}
	if t.Status.Final() {
		// Rejected before any network call.
		m.mu.Unlock()
		return ErrTransferFinal
	}
	m.updating = true
	m.updatingID = transferID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.updating = false
		m.updatingID = 0
		m.mu.Unlock()
	}()

	res := m.client.Update(ctx, transferID, action)
	if m.metrics != nil {
		m.metrics.IncTransferUpdate(string(action), string(res.Outcome))
	}
	if res.Outcome != OutcomeSuccess {
		m.messenger.Error(res.Message)
		if res.Outcome == OutcomeNetworkError {
			return fmt.Errorf("%w: %s", ErrNetwork, res.Message)
		}
		return fmt.Errorf("%w: %s", ErrUpstream, res.Message)
	}

	next := StatusCompleted
	verb := "completed"
	if action == ActionCancel {
		next = StatusCancelled
		verb = "cancelled"
	}

	// Optimistic local update before the reconciliation fetch.
	m.mu.Lock()
	if i, ok := m.indexLocked(transferID); ok {
		m.transfers[i].Status = next
	}
	if m.selected != nil && m.selected.ID == transferID {
		m.selected.Status = next
	}
	page := m.pagination.Page
	m.mu.Unlock()

	m.messenger.Success(fmt.Sprintf("Transfer %s successfully", verb))

	if err := m.fetchPage(ctx, page); err != nil {
		// The mutation itself succeeded; the reconciliation failure was
		// already surfaced by fetchPage and prior data stays visible.
		m.logger.Warn("reconciliation fetch failed", slog.Int64("transfer_id", transferID), slog.Any("error", err))
	}
	return nil
}

// Select opens a transfer's detail view.
func (m *Manager) Select(transferID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.findLocked(transferID)
	if !ok {
		return ErrTransferNotFound
	}
	copied := t
	m.selected = &copied
	return nil
}

// Deselect closes the detail view.
func (m *Manager) Deselect() {
	m.mu.Lock()
	m.selected = nil
	m.mu.Unlock()
}

// Selected returns the open detail view, if any.
func (m *Manager) Selected() (InventoryTransfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return InventoryTransfer{}, false
	}
	return *m.selected, true
}

// Transfers returns a copy of the loaded list.
func (m *Manager) Transfers() []InventoryTransfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InventoryTransfer, len(m.transfers))
	copy(out, m.transfers)
	return out
}

// Pagination returns the last server-reported pagination metadata.
func (m *Manager) Pagination() shared.Pagination {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pagination
}

// Filter returns the active filter.
func (m *Manager) Filter() Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// Updating reports whether a mutation is in flight and for which transfer.
func (m *Manager) Updating() (bool, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating, m.updatingID
}

func (m *Manager) findLocked(transferID int64) (InventoryTransfer, bool) {
	if i, ok := m.indexLocked(transferID); ok {
		return m.transfers[i], true
	}
	return InventoryTransfer{}, false
}

func (m *Manager) indexLocked(transferID int64) (int, bool) {
	for i := range m.transfers {
		if m.transfers[i].ID == transferID {
			return i, true
		}
	}
	return 0, false
}

// syncSelectedLocked refreshes the detail view from the reconciled list so an
// optimistic update is never silently reverted by stale data.
func (m *Manager) syncSelectedLocked() {
	if m.selected == nil {
		return
	}
	if i, ok := m.indexLocked(m.selected.ID); ok {
		copied := m.transfers[i]
		m.selected = &copied
	}
}
