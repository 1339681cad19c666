package validation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/varunr89/oews-sub002/internal/domain/schema"
)

type fakeInspector struct {
	tables map[string][][]any
	// missing simulates a table the side does not have.
	missing map[string]bool
	err     error
}

func (f *fakeInspector) TableExists(ctx context.Context, table string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.missing[table] {
		return false, nil
	}
	_, ok := f.tables[table]
	return ok, nil
}

func (f *fakeInspector) RowCount(ctx context.Context, table string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.tables[table])), nil
}

func (f *fakeInspector) SampleRows(ctx context.Context, table string, columns []string, n int) ([][]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows := f.tables[table]
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n], nil
}

func simpleDefs(tables ...string) []schema.SchemaDefinition {
	defs := make([]schema.SchemaDefinition, 0, len(tables))
	for _, t := range tables {
		defs = append(defs, schema.SchemaDefinition{
			Table: t,
			Columns: []schema.ColumnDefinition{
				{Name: "id", SourceType: "INTEGER", PrimaryKey: true},
				{Name: "v", SourceType: "TEXT"},
			},
		})
	}
	return defs
}

func TestValidateAll_Pass(t *testing.T) {
	rows := [][]any{{int64(1), "a"}, {int64(2), "b"}}
	source := &fakeInspector{tables: map[string][][]any{"t": rows}}
	target := &fakeInspector{tables: map[string][][]any{"t": rows}}

	report, err := NewService(1.0).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusPass {
		t.Errorf("expected PASS, got %s", report.Status)
	}
	if report.TablesValidated != 1 {
		t.Errorf("expected 1 table, got %d", report.TablesValidated)
	}
	r := report.Results[0]
	if !r.RowCountMatch || !r.SampleHashMatch {
		t.Errorf("expected matches, got %+v", r)
	}
	if r.SampleHashSrc == "" || r.SampleHashSrc != r.SampleHashTgt {
		t.Errorf("expected equal non-empty hashes, got %q vs %q", r.SampleHashSrc, r.SampleHashTgt)
	}
	if len(r.Discrepancies) != 0 {
		t.Errorf("expected no discrepancies, got %v", r.Discrepancies)
	}
}

func TestValidateAll_RowCountMismatch(t *testing.T) {
	source := &fakeInspector{tables: map[string][][]any{"t": {{int64(1), "a"}, {int64(2), "b"}}}}
	target := &fakeInspector{tables: map[string][][]any{"t": {{int64(1), "a"}}}}

	report, err := NewService(1.0).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusFail {
		t.Errorf("expected FAIL, got %s", report.Status)
	}
	r := report.Results[0]
	if r.RowCountMatch {
		t.Error("expected row count mismatch")
	}
	if r.RowCountSource != 2 || r.RowCountTarget != 1 {
		t.Errorf("expected 2/1, got %d/%d", r.RowCountSource, r.RowCountTarget)
	}
	found := false
	for _, d := range r.Discrepancies {
		if strings.Contains(d, "row count mismatch") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected row count discrepancy, got %v", r.Discrepancies)
	}
}

func TestValidateAll_MissingTargetTable(t *testing.T) {
	source := &fakeInspector{tables: map[string][][]any{"t": {{int64(1), "a"}}}}
	target := &fakeInspector{tables: map[string][][]any{}, missing: map[string]bool{"t": true}}

	report, err := NewService(0.1).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusFail {
		t.Errorf("expected FAIL, got %s", report.Status)
	}
	r := report.Results[0]
	if !r.ExistsSource || r.ExistsTarget {
		t.Errorf("expected source-only table, got %+v", r)
	}
}

func TestValidateAll_ContentMismatch(t *testing.T) {
	source := &fakeInspector{tables: map[string][][]any{"t": {{int64(1), "a"}}}}
	target := &fakeInspector{tables: map[string][][]any{"t": {{int64(1), "CHANGED"}}}}

	report, err := NewService(1.0).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := report.Results[0]
	if r.SampleHashMatch {
		t.Error("expected hash mismatch")
	}
	if r.RowCountMatch != true {
		t.Error("row counts should still match")
	}
	if report.Status != StatusFail {
		t.Errorf("expected FAIL, got %s", report.Status)
	}
}

func TestValidateAll_EmptyTablePasses(t *testing.T) {
	source := &fakeInspector{tables: map[string][][]any{"t": {}}}
	target := &fakeInspector{tables: map[string][][]any{"t": {}}}

	report, err := NewService(0.1).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != StatusPass {
		t.Errorf("expected PASS for empty table, got %s", report.Status)
	}
	r := report.Results[0]
	if !r.RowCountMatch || !r.SampleHashMatch {
		t.Errorf("expected matches for empty table, got %+v", r)
	}
	if r.SampleSize != 0 {
		t.Errorf("expected no sampling for empty table, got %d", r.SampleSize)
	}
}

func TestValidateAll_QueryFailure(t *testing.T) {
	source := &fakeInspector{err: errors.New("connection lost")}
	target := &fakeInspector{tables: map[string][][]any{}}

	_, err := NewService(0.1).ValidateAll(context.Background(), source, target, simpleDefs("t"), "job-1")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Table != "t" {
		t.Errorf("expected table t named, got %s", valErr.Table)
	}
}

func TestSampleSize(t *testing.T) {
	cases := []struct {
		rows     int64
		pct      float64
		expected int
	}{
		{0, 0.1, 0},
		{1, 0.1, 1},    // minimum of one row for a non-empty table
		{9, 0.1, 1},    // ceil(0.9)
		{10, 0.1, 1},   // ceil(1.0)
		{11, 0.1, 2},   // ceil(1.1)
		{1000, 0.1, 100},
		{2, 1.0, 2},    // scenario: 2 rows at full sampling
		{2, 0.5, 1},
		{3, 0.001, 1},  // tiny fraction still samples one
	}
	for _, tc := range cases {
		if got := SampleSize(tc.rows, tc.pct); got != tc.expected {
			t.Errorf("SampleSize(%d, %g) = %d, expected %d", tc.rows, tc.pct, got, tc.expected)
		}
	}
}

func TestReport_WriteFile(t *testing.T) {
	report := &Report{
		JobID:           "job-7",
		Timestamp:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:          StatusPass,
		TablesValidated: 1,
		Results: []TableResult{{
			TableName:       "t",
			ExistsSource:    true,
			ExistsTarget:    true,
			RowCountSource:  5,
			RowCountTarget:  5,
			RowCountMatch:   true,
			SampleSize:      1,
			SampleHashMatch: true,
			Discrepancies:   []string{},
		}},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := report.WriteFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["job_id"] != "job-7" || decoded["status"] != "PASS" {
		t.Errorf("unexpected report fields: %v", decoded)
	}
	results := decoded["results"].([]any)
	first := results[0].(map[string]any)
	if first["table_name"] != "t" || first["row_count_match"] != true {
		t.Errorf("unexpected table result: %v", first)
	}
	if _, ok := first["discrepancies"]; !ok {
		t.Error("expected discrepancies array present")
	}
}
