// Package checkpoint persists the number of data rows an import has fully
// processed so an interrupted run can resume after them.
package checkpoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store is a durable home for one offset.
type Store interface {
	Load(ctx context.Context) (int64, bool, error)
	Save(ctx context.Context, offset int64) error
	Clear(ctx context.Context) error
}

// Manager guards a Store: offsets never move backwards within a run.
type Manager struct {
	store  Store
	last   int64
	logger *zap.Logger
}

func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger}
}

func (m *Manager) Load(ctx context.Context) (int64, bool, error) {
	offset, ok, err := m.store.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	if ok && offset < 0 {
		return 0, false, fmt.Errorf("invalid checkpoint offset %d", offset)
	}
	if ok {
		m.last = offset
	}
	return offset, ok, nil
}

// Save persists offset before returning.
func (m *Manager) Save(ctx context.Context, offset int64) error {
	if offset < m.last {
		return fmt.Errorf("checkpoint would move backwards from %d to %d", m.last, offset)
	}
	if err := m.store.Save(ctx, offset); err != nil {
		return err
	}
	m.last = offset
	m.logger.Debug("checkpoint saved", zap.Int64("offset", offset))
	return nil
}

func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.last = 0
	m.logger.Info("checkpoint cleared")
	return nil
}
