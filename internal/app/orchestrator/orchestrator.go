// Package orchestrator drives one deployment job through its state
// machine: provision, migrate schema, transfer data, validate, and on
// any failure roll every created cloud resource back.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/varunr89/oews-sub002/internal/app/schemamigration"
	"github.com/varunr89/oews-sub002/internal/app/transfer"
	"github.com/varunr89/oews-sub002/internal/app/validation"
	"github.com/varunr89/oews-sub002/internal/config"
	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/domain/progress"
	"github.com/varunr89/oews-sub002/internal/domain/schema"
	"github.com/varunr89/oews-sub002/internal/infrastructure/azure"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// Provisioner creates and deletes the cloud resources for one job.
type Provisioner interface {
	Provision(ctx context.Context, j *job.Job, names azure.ResourceNames, password logger.Secret) (azure.Target, error)
	DeleteResources(ctx context.Context, resources []job.CloudResource) azure.RollbackResult
}

// SourceDB is everything the phases need from the source database.
type SourceDB interface {
	schemamigration.SchemaReader
	transfer.SourceReader
	validation.Inspector
	Close() error
}

// TargetDB is everything the phases need from the target database.
type TargetDB interface {
	schemamigration.TargetExecutor
	transfer.BatchWriter
	validation.Inspector
	SetMaxOpenConns(n int)
	Close() error
}

// SourceOpener opens the source database read-only.
type SourceOpener func(path string) (SourceDB, error)

// TargetConnector connects to the freshly provisioned target database.
type TargetConnector func(ctx context.Context, host, database, user string, password logger.Secret) (TargetDB, error)

// Result is what the command layer renders once a run finishes. The
// administrator password rides here for a single hand-off to the
// operator; it stays a logger.Secret until the command reveals it.
type Result struct {
	Job        *job.Job
	Target     azure.Target
	Password   logger.Secret
	Report     *validation.Report
	ReportPath string

	// Rollback is set when a failure triggered resource deletion.
	Rollback    *azure.RollbackResult
	RollbackErr *azure.RollbackError
	CleanupPath string
}

// Service owns the migration job for its whole lifetime. Phase
// components receive the pieces of state they need as arguments and
// report back through return values; only the orchestrator moves the
// state machine.
type Service struct {
	cfg config.DeploymentConfiguration
	bus *progress.Bus

	provisioner Provisioner
	openSource  SourceOpener
	connect     TargetConnector

	schemas   *schemamigration.Service
	mover     *transfer.Service
	validator *validation.Service
}

func NewService(cfg config.DeploymentConfiguration, bus *progress.Bus, provisioner Provisioner, openSource SourceOpener, connect TargetConnector) *Service {
	return &Service{
		cfg:         cfg,
		bus:         bus,
		provisioner: provisioner,
		openSource:  openSource,
		connect:     connect,
		schemas:     schemamigration.NewService(),
		mover: transfer.NewService(transfer.Config{
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.TransferConcurrency,
			Interval:    cfg.ProgressInterval,
		}, bus),
		validator: validation.NewService(cfg.SampleFraction),
	}
}

// Run executes one deployment end to end. A nil error means the job
// reached COMPLETED; the validation verdict lives in Result.Report and
// is the caller's to act on. A non-nil error means the job failed and
// rollback ran; Result describes how that went.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	j := job.New(s.cfg.SourcePath)
	result := &Result{Job: j}

	logger.Info("deployment started", "job_id", j.ID, "source", s.cfg.SourcePath)

	if err := s.execute(ctx, j, result); err != nil {
		j.Fail(err)
		logger.Error("deployment failed", "job_id", j.ID, "phase", string(j.Status()), "error", err)
		s.rollback(ctx, j, result)
		return result, err
	}

	logger.Info("deployment completed",
		"job_id", j.ID,
		"validation", string(result.Report.Status),
		"duration", j.Duration().Round(time.Second))
	return result, nil
}

func (s *Service) execute(ctx context.Context, j *job.Job, result *Result) error {
	source, err := s.openSource(s.cfg.SourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	names := azure.DeriveNames(s.cfg.BaseName())
	password, err := azure.GeneratePassword()
	if err != nil {
		return err
	}

	if err := s.transition(j, job.StatusProvisioning); err != nil {
		return err
	}
	target, err := s.provisioner.Provision(ctx, j, names, password)
	if err != nil {
		return err
	}
	result.Target = target
	result.Password = password

	conn, err := s.connect(ctx, target.Host, target.Database, target.User, password)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(s.cfg.TransferConcurrency + 1)

	if err := s.transition(j, job.StatusMigratingSchema); err != nil {
		return err
	}
	defs, err := s.schemas.Extract(ctx, source)
	if err != nil {
		return err
	}
	ddl, err := s.schemas.ConvertAll(defs)
	if err != nil {
		return err
	}
	order, err := s.schemas.CreationOrder(defs)
	if err != nil {
		return err
	}
	if err := s.schemas.Apply(ctx, conn, ddl, order); err != nil {
		return err
	}

	if err := s.transition(j, job.StatusTransferringData); err != nil {
		return err
	}
	levels, err := schema.BuildGraph(defs).TransferLevels()
	if err != nil {
		return err
	}
	if err := s.mover.TransferAll(ctx, source, conn, defs, levels, j); err != nil {
		return err
	}

	if err := s.transition(j, job.StatusValidating); err != nil {
		return err
	}
	report, err := s.validator.ValidateAll(ctx, source, conn, defs, j.ID)
	if err != nil {
		return err
	}
	result.Report = report
	if s.cfg.ReportFile != "" {
		if err := report.WriteFile(s.cfg.ReportFile); err != nil {
			return err
		}
		result.ReportPath = s.cfg.ReportFile
	}

	return s.transition(j, job.StatusCompleted)
}

// rollback deletes every resource on the job ledger. It runs detached
// from the caller's cancellation: once a job is failing, cleanup must
// finish even if the failure was the user's interrupt.
func (s *Service) rollback(ctx context.Context, j *job.Job, result *Result) {
	if err := s.transition(j, job.StatusRollingBack); err != nil {
		logger.Error("rollback skipped", "job_id", j.ID, "error", err)
		return
	}

	resources := j.Resources()
	logger.Info("rolling back", "job_id", j.ID, "resources", len(resources))

	rb := s.provisioner.DeleteResources(context.WithoutCancel(ctx), resources)
	result.Rollback = &rb
	for _, r := range rb.Deleted {
		j.ReleaseResource(r.Kind, r.Name)
	}

	if rb.Clean() {
		if err := s.transition(j, job.StatusRollbackComplete); err != nil {
			logger.Error("state transition failed", "job_id", j.ID, "error", err)
		}
		logger.Info("rollback complete", "job_id", j.ID, "deleted", len(rb.Deleted))
		return
	}

	result.RollbackErr = &azure.RollbackError{Failed: rb.Failed}
	for _, f := range rb.Failed {
		logger.Error("resource requires manual deletion",
			"kind", string(f.Resource.Kind),
			"name", f.Resource.Name,
			"azure_id", f.Resource.AzureID,
			"error", f.Err)
	}

	path, err := writeCleanupFile(s.cleanupPath(), j, rb.Failed)
	if err != nil {
		logger.Error("failed to write cleanup file", "job_id", j.ID, "error", err)
	} else {
		result.CleanupPath = path
	}

	if err := s.transition(j, job.StatusRollbackFailed); err != nil {
		logger.Error("state transition failed", "job_id", j.ID, "error", err)
	}
}

// cleanupPath puts the manifest next to the validation report so both
// artifacts of a run land in one place.
func (s *Service) cleanupPath() string {
	return filepath.Join(filepath.Dir(s.cfg.ReportFile), cleanupFileName)
}

// transition advances the state machine, logging one line per move and
// notifying progress subscribers.
func (s *Service) transition(j *job.Job, next job.Status) error {
	prev := j.Status()
	if err := j.Transition(next); err != nil {
		return err
	}
	logger.Info("phase transition", "job_id", j.ID, "from", string(prev), "to", string(next))
	s.bus.EmitSync(progress.Event{
		Type:  progress.EventStage,
		JobID: j.ID,
		Stage: string(next),
	})
	return nil
}
