// Package vaulttest provides in-memory implementations of the vault repositories, the
// outbox writer and the transaction manager for tests. All fakes share one Store so a
// failed transaction can roll every table back together.
package vaulttest

import (
	"context"
	"slices"
	"sync"

	outboxDomain "github.com/allisson/credvault/internal/outbox/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// Operation names accepted by Store.Fail.
const (
	OpBeginTx              = "tx.Begin"
	OpItemCreate           = "items.Create"
	OpItemGet              = "items.Get"
	OpItemUpdate           = "items.Update"
	OpItemIncrementAccess  = "items.IncrementAccess"
	OpItemDeactivate       = "items.Deactivate"
	OpItemSetReference     = "items.SetBlockchainReference"
	OpItemList             = "items.ListByOwner"
	OpItemStats            = "items.Stats"
	OpItemDeleteByOwner    = "items.DeleteByOwner"
	OpShareCreate          = "shares.Create"
	OpShareGet             = "shares.Get"
	OpShareListByVault     = "shares.ListByVault"
	OpShareListForUser     = "shares.ListForPrincipal"
	OpShareRevoke          = "shares.Revoke"
	OpShareDeleteByUser    = "shares.DeleteByUser"
	OpAccessLogCreate      = "logs.Create"
	OpAccessLogListByOwner = "logs.ListByOwner"
	OpAccessLogList        = "logs.List"
	OpAccessLogDeleteUser  = "logs.DeleteByUser"
	OpOutboxCreate         = "outbox.Create"
)

// Store holds the rows of every fake table.
type Store struct {
	mu       sync.Mutex
	items    []*vaultDomain.VaultItem
	shares   []*vaultDomain.VaultShare
	logs     []*vaultDomain.AccessLog
	events   []*outboxDomain.Event
	failures map[string]error
}

type snapshot struct {
	items  []*vaultDomain.VaultItem
	shares []*vaultDomain.VaultShare
	logs   []*vaultDomain.AccessLog
	events []*outboxDomain.Event
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{failures: make(map[string]error)}
}

// Fail makes every later call to op return err. A nil err clears the failure.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// failure must be called with mu held.
func (s *Store) failure(op string) error {
	return s.failures[op]
}

// Items returns an ItemRepository backed by the store.
func (s *Store) Items() *ItemRepository {
	return &ItemRepository{store: s}
}

// Shares returns a ShareRepository backed by the store.
func (s *Store) Shares() *ShareRepository {
	return &ShareRepository{store: s}
}

// AccessLogs returns an AccessLogRepository backed by the store.
func (s *Store) AccessLogs() *AccessLogRepository {
	return &AccessLogRepository{store: s}
}

// Outbox returns an OutboxRepository backed by the store.
func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

// TxManager returns a transaction manager that restores the store when fn fails.
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// Logs returns a copy of every access log row in insertion order.
func (s *Store) Logs() []vaultDomain.AccessLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]vaultDomain.AccessLog, 0, len(s.logs))
	for _, l := range s.logs {
		out = append(out, *l)
	}
	return out
}

// Events returns the stored outbox events in insertion order.
func (s *Store) Events() []*outboxDomain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events)
}

// EventTypes returns the type of every stored outbox event in insertion order.
func (s *Store) EventTypes() []vaultDomain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]vaultDomain.EventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, vaultDomain.EventType(e.EventType))
	}
	return types
}

// TamperLog replaces the stored access log row with the same id.
func (s *Store) TamperLog(log vaultDomain.AccessLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.logs {
		if l.ID == log.ID {
			s.logs[i] = &log
		}
	}
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		items:  make([]*vaultDomain.VaultItem, 0, len(s.items)),
		shares: make([]*vaultDomain.VaultShare, 0, len(s.shares)),
		logs:   slices.Clone(s.logs),
		events: slices.Clone(s.events),
	}
	for _, item := range s.items {
		snap.items = append(snap.items, cloneItem(item))
	}
	for _, share := range s.shares {
		c := *share
		snap.shares = append(snap.shares, &c)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = snap.items
	s.shares = snap.shares
	s.logs = snap.logs
	s.events = snap.events
}

// TxManager implements database.TxManager over a Store. Transactions are not isolated
// from each other; tests that need isolation must not run them concurrently.
type TxManager struct {
	store *Store
}

// WithTx runs fn and rolls the store back if fn fails.
func (t *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.mu.Lock()
	err := t.store.failure(OpBeginTx)
	t.store.mu.Unlock()
	if err != nil {
		return err
	}

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// OutboxRepository stores outbox events.
type OutboxRepository struct {
	store *Store
}

// Create appends event.
func (o *OutboxRepository) Create(_ context.Context, event *outboxDomain.Event) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	if err := o.store.failure(OpOutboxCreate); err != nil {
		return err
	}
	o.store.events = append(o.store.events, event)
	return nil
}

func cloneItem(item *vaultDomain.VaultItem) *vaultDomain.VaultItem {
	c := *item
	c.Tags = slices.Clone(item.Tags)
	c.EncryptedValue = slices.Clone(item.EncryptedValue)
	c.WrappedDataKey = slices.Clone(item.WrappedDataKey)
	c.KeyDerivationSalt = slices.Clone(item.KeyDerivationSalt)
	c.Nonce = slices.Clone(item.Nonce)
	return &c
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
