// Package job holds the deployment job model: its lifecycle state machine
// and the ledger of cloud resources created on its behalf.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInitializing     Status = "INITIALIZING"
	StatusProvisioning     Status = "PROVISIONING"
	StatusMigratingSchema  Status = "MIGRATING_SCHEMA"
	StatusTransferringData Status = "TRANSFERRING_DATA"
	StatusValidating       Status = "VALIDATING"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
	StatusRollingBack      Status = "ROLLING_BACK"
	StatusRollbackComplete Status = "ROLLBACK_COMPLETE"
	StatusRollbackFailed   Status = "ROLLBACK_FAILED"
)

// transitions is the complete set of legal moves. A job never re-enters a
// state: the run is one-shot, forward-only, with a single failure path.
var transitions = map[Status][]Status{
	StatusInitializing:     {StatusProvisioning, StatusFailed},
	StatusProvisioning:     {StatusMigratingSchema, StatusFailed},
	StatusMigratingSchema:  {StatusTransferringData, StatusFailed},
	StatusTransferringData: {StatusValidating, StatusFailed},
	StatusValidating:       {StatusCompleted, StatusFailed},
	StatusFailed:           {StatusRollingBack},
	StatusRollingBack:      {StatusRollbackComplete, StatusRollbackFailed},
}

// IsTerminal reports whether no further transition is legal from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ResourceKind identifies what a ledger entry points at in Azure.
type ResourceKind string

const (
	ResourceGroup    ResourceKind = "resource_group"
	ResourceServer   ResourceKind = "sql_server"
	ResourceDatabase ResourceKind = "sql_database"
	ResourceFirewall ResourceKind = "firewall_rule"
)

// CloudResource is one entry in the job's creation ledger. Entries are
// appended immediately after each successful create so rollback always sees
// everything that exists, even after a partial run.
type CloudResource struct {
	Kind      ResourceKind `json:"kind"`
	Name      string       `json:"name"`
	AzureID   string       `json:"azure_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableStat tracks per-table transfer progress.
type TableStat struct {
	SourceRows      int64
	TransferredRows int64
	Done            bool
}

// Job is a single deployment run. All mutators are safe for concurrent use;
// the transfer stage updates table stats from multiple goroutines.
type Job struct {
	ID         string
	SourcePath string
	StartedAt  time.Time

	mu         sync.RWMutex
	status     Status
	finishedAt time.Time
	failure    error
	resources  []CloudResource
	tables     map[string]*TableStat
}

// New creates a job in INITIALIZING for the given source database path.
func New(sourcePath string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		StartedAt:  time.Now().UTC(),
		status:     StatusInitializing,
		tables:     make(map[string]*TableStat),
	}
}

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Transition moves the job to next, enforcing the lifecycle table. An
// illegal move is a programming error in the caller.
func (j *Job) Transition(next Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.CanTransition(next) {
		return fmt.Errorf("illegal job transition %s -> %s", j.status, next)
	}
	j.status = next
	if next.IsTerminal() {
		j.finishedAt = time.Now().UTC()
	}
	return nil
}

// Fail records the first fatal error and moves the job to FAILED. Later
// calls keep the original cause; the transition error surfaces only if the
// job is already terminal.
func (j *Job) Fail(cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failure == nil {
		j.failure = cause
	}
	if j.status == StatusFailed {
		return nil
	}
	if !j.status.CanTransition(StatusFailed) {
		return fmt.Errorf("illegal job transition %s -> %s", j.status, StatusFailed)
	}
	j.status = StatusFailed
	return nil
}

// Failure returns the recorded fatal error, if any.
func (j *Job) Failure() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.failure
}

// FinishedAt returns when the job reached a terminal state (zero until then).
func (j *Job) FinishedAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt
}

// Duration returns elapsed wall time, using now for a still-running job.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.finishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.finishedAt.Sub(j.StartedAt)
}

// RecordResource appends a created resource to the ledger.
func (j *Job) RecordResource(kind ResourceKind, name, azureID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resources = append(j.resources, CloudResource{
		Kind:      kind,
		Name:      name,
		AzureID:   azureID,
		CreatedAt: time.Now().UTC(),
	})
}

// ReleaseResource drops a ledger entry after its successful deletion.
func (j *Job) ReleaseResource(kind ResourceKind, name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, r := range j.resources {
		if r.Kind == kind && r.Name == name {
			j.resources = append(j.resources[:i], j.resources[i+1:]...)
			return
		}
	}
}

// ReleaseAllResources empties the ledger. Deleting the resource group takes
// every contained resource with it, so the ledger clears as one.
func (j *Job) ReleaseAllResources() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resources = nil
}

// Resources returns the ledger in creation order.
func (j *Job) Resources() []CloudResource {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]CloudResource, len(j.resources))
	copy(out, j.resources)
	return out
}

// ResourcesReversed returns the ledger in deletion order, newest first.
func (j *Job) ResourcesReversed() []CloudResource {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]CloudResource, len(j.resources))
	for i, r := range j.resources {
		out[len(j.resources)-1-i] = r
	}
	return out
}

// SetTableSourceRows registers a table and its source row count before
// transfer starts.
func (j *Job) SetTableSourceRows(table string, rows int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tables[table] = &TableStat{SourceRows: rows}
}

// AddTransferredRows bumps the transferred counter after a committed batch.
func (j *Job) AddTransferredRows(table string, rows int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if stat, ok := j.tables[table]; ok {
		stat.TransferredRows += rows
	}
}

// MarkTableDone flags a table as fully transferred.
func (j *Job) MarkTableDone(table string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if stat, ok := j.tables[table]; ok {
		stat.Done = true
	}
}

// TableStats returns a copy of the per-table counters.
func (j *Job) TableStats() map[string]TableStat {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]TableStat, len(j.tables))
	for name, stat := range j.tables {
		out[name] = *stat
	}
	return out
}

// Progress returns transferred and total row counts across all tables.
func (j *Job) Progress() (transferred, total int64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, stat := range j.tables {
		transferred += stat.TransferredRows
		total += stat.SourceRows
	}
	return transferred, total
}
