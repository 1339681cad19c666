// Package validation compares the migrated database against the source:
// table existence, row counts, and sampled content hashes.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/varunr89/oews-sub002/internal/domain/schema"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// ValidationError reports that validation itself could not run, a query
// or write failure. A FAIL verdict is not an error; it lives in the
// report.
type ValidationError struct {
	Table string
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("validation failed on table %s: %v", e.Table, e.Cause)
	}
	return fmt.Sprintf("validation failed: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Status is the overall verdict.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// TableResult is the verdict for one table.
type TableResult struct {
	TableName       string   `json:"table_name"`
	ExistsSource    bool     `json:"exists_source"`
	ExistsTarget    bool     `json:"exists_target"`
	RowCountSource  int64    `json:"row_count_source"`
	RowCountTarget  int64    `json:"row_count_target"`
	RowCountMatch   bool     `json:"row_count_match"`
	SampleSize      int      `json:"sample_size"`
	SampleHashSrc   string   `json:"sample_hash_source,omitempty"`
	SampleHashTgt   string   `json:"sample_hash_target,omitempty"`
	SampleHashMatch bool     `json:"sample_hash_match"`
	Discrepancies   []string `json:"discrepancies"`
}

// Report is the final validation document, serialized to JSON.
type Report struct {
	JobID           string        `json:"job_id"`
	Timestamp       time.Time     `json:"timestamp"`
	Status          Status        `json:"status"`
	TablesValidated int           `json:"tables_validated"`
	Results         []TableResult `json:"results"`
}

// Inspector answers validation queries for one side.
type Inspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	RowCount(ctx context.Context, table string) (int64, error)
	SampleRows(ctx context.Context, table string, columns []string, n int) ([][]any, error)
}

// Service runs the comparison. SamplePct is the fraction of rows hashed
// per table.
type Service struct {
	samplePct float64
}

func NewService(samplePct float64) *Service {
	return &Service{samplePct: samplePct}
}

// SampleSize returns ceil(totalRows * pct), at least 1 for a non-empty
// table.
func SampleSize(totalRows int64, pct float64) int {
	if totalRows <= 0 {
		return 0
	}
	n := int(math.Ceil(float64(totalRows) * pct))
	if n < 1 {
		n = 1
	}
	return n
}

// ValidateAll checks every table and assembles the report. PASS requires
// every table present on both sides with matching counts and matching
// sample hashes. Hash mismatches on small samples can be sampling
// artifacts rather than corruption; the discrepancy text says so.
func (s *Service) ValidateAll(ctx context.Context, source, target Inspector, defs []schema.SchemaDefinition, jobID string) (*Report, error) {
	report := &Report{
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Status:    StatusPass,
	}

	for _, def := range defs {
		result, err := s.validateTable(ctx, source, target, def)
		if err != nil {
			return nil, err
		}
		if len(result.Discrepancies) > 0 {
			report.Status = StatusFail
		}
		report.Results = append(report.Results, result)
	}
	report.TablesValidated = len(report.Results)

	logger.Info("validation finished", "status", string(report.Status), "tables", report.TablesValidated)
	return report, nil
}

func (s *Service) validateTable(ctx context.Context, source, target Inspector, def schema.SchemaDefinition) (TableResult, error) {
	table := def.Table
	result := TableResult{TableName: table, Discrepancies: []string{}}

	var err error
	if result.ExistsSource, err = source.TableExists(ctx, table); err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}
	if result.ExistsTarget, err = target.TableExists(ctx, table); err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}
	if !result.ExistsSource || !result.ExistsTarget {
		result.Discrepancies = append(result.Discrepancies,
			fmt.Sprintf("table presence differs: source=%t target=%t", result.ExistsSource, result.ExistsTarget))
		return result, nil
	}

	if result.RowCountSource, err = source.RowCount(ctx, table); err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}
	if result.RowCountTarget, err = target.RowCount(ctx, table); err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}
	result.RowCountMatch = result.RowCountSource == result.RowCountTarget
	if !result.RowCountMatch {
		result.Discrepancies = append(result.Discrepancies,
			fmt.Sprintf("row count mismatch: source=%d target=%d", result.RowCountSource, result.RowCountTarget))
	}

	// An empty table on both sides has nothing to hash and passes.
	if result.RowCountSource == 0 && result.RowCountTarget == 0 {
		result.SampleHashMatch = true
		return result, nil
	}

	result.SampleSize = SampleSize(result.RowCountSource, s.samplePct)
	columns := def.ColumnNames()

	sourceRows, err := source.SampleRows(ctx, table, columns, result.SampleSize)
	if err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}
	targetRows, err := target.SampleRows(ctx, table, columns, result.SampleSize)
	if err != nil {
		return result, &ValidationError{Table: table, Cause: err}
	}

	result.SampleHashSrc = hashRows(sourceRows)
	result.SampleHashTgt = hashRows(targetRows)
	result.SampleHashMatch = result.SampleHashSrc == result.SampleHashTgt
	if !result.SampleHashMatch {
		result.Discrepancies = append(result.Discrepancies, fmt.Sprintf(
			"sample hash mismatch over %d rows; independent random samples can differ on identical data, rerun with a larger sample fraction to confirm",
			result.SampleSize))
	}
	return result, nil
}

// WriteFile serializes the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return &ValidationError{Cause: fmt.Errorf("encode report: %w", err)}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &ValidationError{Cause: fmt.Errorf("write report: %w", err)}
	}
	return nil
}
