// Package transfer copies table data from the source to the target in
// batches, dependency level by dependency level.
package transfer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/domain/progress"
	"github.com/varunr89/oews-sub002/internal/domain/schema"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// TransferError reports the table whose copy failed and, when the
// failure hit during a write, the 1-based batch number. The failing
// batch is already rolled back; earlier batches of the same table remain
// committed and are removed with everything else when the job rolls back.
type TransferError struct {
	Table string
	Batch int
	Cause error
}

func (e *TransferError) Error() string {
	if e.Batch > 0 {
		return fmt.Sprintf("data transfer failed on table %s, batch %d: %v", e.Table, e.Batch, e.Cause)
	}
	return fmt.Sprintf("data transfer failed on table %s: %v", e.Table, e.Cause)
}

func (e *TransferError) Unwrap() error { return e.Cause }

// RowStream yields one table's rows in a stable order.
type RowStream interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// SourceReader reads row counts and row streams from the source.
type SourceReader interface {
	RowCount(ctx context.Context, table string) (int64, error)
	ReadTable(ctx context.Context, table string, columns, orderBy []string) (RowStream, error)
}

// BatchWriter writes one batch of rows to the target in a transaction.
type BatchWriter interface {
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
}

// Config tunes the transfer.
type Config struct {
	BatchSize   int
	Concurrency int
	Interval    time.Duration
}

// Service copies rows. Tables in the same dependency level run on a
// bounded worker pool; levels run strictly in order.
type Service struct {
	cfg Config
	bus *progress.Bus

	mu     sync.Mutex
	active map[string]bool
}

func NewService(cfg Config, bus *progress.Bus) *Service {
	return &Service{cfg: cfg, bus: bus, active: make(map[string]bool)}
}

// TransferAll copies every table. Levels come from the foreign-key graph:
// tables inside one level share no dependency edge, so they may run
// concurrently; a table never starts before the level holding its
// referenced tables has finished. The first failing table cancels the
// rest of its level and aborts the remaining levels.
func (s *Service) TransferAll(ctx context.Context, source SourceReader, writer BatchWriter, defs []schema.SchemaDefinition, levels [][]string, j *job.Job) error {
	byTable := make(map[string]schema.SchemaDefinition, len(defs))
	for _, def := range defs {
		byTable[def.Table] = def
	}

	// Count everything up front; progress percentages are weighted by
	// row counts across all tables.
	for _, level := range levels {
		for _, table := range level {
			total, err := source.RowCount(ctx, table)
			if err != nil {
				return &TransferError{Table: table, Cause: err}
			}
			j.SetTableSourceRows(table, total)
		}
	}

	stopTicker := s.startInterval(ctx, j)
	defer stopTicker()

	for _, level := range levels {
		g, levelCtx := errgroup.WithContext(ctx)
		limit := s.cfg.Concurrency
		if limit > len(level) {
			limit = len(level)
		}
		if limit < 1 {
			limit = 1
		}
		g.SetLimit(limit)

		for _, table := range level {
			def, ok := byTable[table]
			if !ok {
				return &TransferError{Table: table, Cause: fmt.Errorf("table not extracted")}
			}
			g.Go(func() error {
				return s.transferTable(levelCtx, source, writer, def, j)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	transferred, total := j.Progress()
	s.bus.EmitSync(progress.Event{
		Type:      progress.EventTransferDone,
		JobID:     j.ID,
		RowsDone:  transferred,
		RowsTotal: total,
		Percent:   progress.Percentage(transferred, total),
	})
	logger.Info("data transfer complete", "rows", transferred, "tables", len(byTable))
	return nil
}

// transferTable streams one table in batch-sized chunks. Each batch
// commits in its own transaction on the target; cancellation is only
// observed between batches, never inside one.
func (s *Service) transferTable(ctx context.Context, source SourceReader, writer BatchWriter, def schema.SchemaDefinition, j *job.Job) error {
	table := def.Table
	s.setActive(table, true)
	defer s.setActive(table, false)

	stats := j.TableStats()[table]
	s.bus.Emit(progress.Event{
		Type:      progress.EventTableStarted,
		JobID:     j.ID,
		Table:     table,
		TableRows: stats.SourceRows,
	})

	columns := def.ColumnNames()
	stream, err := source.ReadTable(ctx, table, columns, def.PrimaryKeyColumns())
	if err != nil {
		return &TransferError{Table: table, Cause: err}
	}
	defer stream.Close()
	started := time.Now()
	var written int64
	var batchNum int
	batch := make([][]any, 0, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchNum++
		if err := ctx.Err(); err != nil {
			return &TransferError{Table: table, Batch: batchNum, Cause: err}
		}
		if err := writer.InsertBatch(ctx, table, columns, batch); err != nil {
			return &TransferError{Table: table, Batch: batchNum, Cause: err}
		}
		n := int64(len(batch))
		written += n
		j.AddTransferredRows(table, n)
		batch = batch[:0]

		done, total := j.Progress()
		s.bus.Emit(progress.Event{
			Type:      progress.EventBatch,
			JobID:     j.ID,
			Table:     table,
			TableRows: stats.SourceRows,
			RowsDone:  done,
			RowsTotal: total,
			Percent:   progress.Percentage(done, total),
		})
		return nil
	}

	for stream.Next() {
		row, err := stream.Values()
		if err != nil {
			return &TransferError{Table: table, Cause: err}
		}
		batch = append(batch, row)
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return &TransferError{Table: table, Cause: err}
	}
	if err := flush(); err != nil {
		return err
	}

	j.MarkTableDone(table)
	done, total := j.Progress()
	s.bus.EmitSync(progress.Event{
		Type:      progress.EventTableComplete,
		JobID:     j.ID,
		Table:     table,
		TableRows: written,
		RowsDone:  done,
		RowsTotal: total,
		Percent:   progress.Percentage(done, total),
	})
	logger.Info("table transferred", "table", table, "rows", written, "duration", time.Since(started).Round(time.Millisecond))
	return nil
}

// startInterval emits a heartbeat event at the configured interval so a
// slow consumer still sees movement between batch events. Returns a stop
// function.
func (s *Service) startInterval(ctx context.Context, j *job.Job) func() {
	if s.cfg.Interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				transferred, total := j.Progress()
				s.bus.Emit(progress.Event{
					Type:      progress.EventInterval,
					JobID:     j.ID,
					Table:     s.activeTables(),
					RowsDone:  transferred,
					RowsTotal: total,
					Percent:   progress.Percentage(transferred, total),
					Elapsed:   time.Since(start).Round(time.Second).String(),
				})
			}
		}
	}()
	return func() { close(done) }
}

func (s *Service) setActive(table string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.active[table] = true
		return
	}
	delete(s.active, table)
}

// activeTables returns the tables currently in flight, comma-joined.
func (s *Service) activeTables() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.active))
	for name := range s.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
