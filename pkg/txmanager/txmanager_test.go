package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-EduBookingService/pkg/dbmetrics"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	opts     []*sql.TxOptions
	beginErr error
}

func (b *fakeBeginner) BeginTx(_ context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	b.opts = append(b.opts, opts)
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return b.tx, nil
}

func TestDoCommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(b)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, dbmetrics.IsInTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
	assert.Equal(t, sql.LevelReadCommitted, b.opts[0].Isolation)
}

func TestDoRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(b)
	fnErr := errors.New("slot taken")

	err := m.Do(context.Background(), func(context.Context) error { return fnErr })

	assert.ErrorIs(t, err, fnErr)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestDoRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(b)

	assert.Panics(t, func() {
		_ = m.Do(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.True(t, b.tx.rolledBack)
}

func TestNestedCallJoinsOuterTransaction(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	m := NewTransactionManager(b)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.Len(t, b.opts, 1)
}

func TestBeginAndCommitErrorsAreWrapped(t *testing.T) {
	m := NewTransactionManager(&fakeBeginner{beginErr: errors.New("conn refused")})
	err := m.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBeginTx)

	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
	err = NewTransactionManager(b).Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCommit)
	assert.Equal(t, sql.LevelReadCommitted, b.opts[0].Isolation)
}
