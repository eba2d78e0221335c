package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerClosed is returned by Do after Close.
var ErrWorkerClosed = errors.New("db: write worker closed")

// TxFn is the body of a write transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker runs write transactions on a fixed number of goroutines. SQLite
// uses one so writes never contend for the database lock; Postgres can use
// more.
type Worker struct {
	db   *sql.DB
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex // guards closed and sends on jobs
	closed bool
}

func NewWorker(db *sql.DB) *Worker {
	return NewWorkerPool(db, 1)
}

func NewWorkerPool(db *sql.DB, n int) *Worker {
	if n < 1 {
		n = 1
	}
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
	}
	w.wg.Add(n)
	for i := 0; i < n; i++ {
		go w.loop()
	}
	return w
}

// Close stops accepting jobs and waits for queued ones to finish. It is safe
// to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// Do runs fn inside a transaction on a worker goroutine. The transaction is
// committed when fn returns nil and rolled back otherwise.
//
// If ctx ends while the job is queued or running, Do returns ctx.Err() but
// the worker still finishes the transaction. Callers that must learn the
// outcome pass a context without cancellation.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	if err := w.enqueue(ctx, j); err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) enqueue(ctx context.Context, j job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) (err error) {
	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("db: write transaction panicked: %v", p)
		}
	}()

	if err := j.fn(j.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
