package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varunr89/oews-sub002/internal/app/orchestrator"
	"github.com/varunr89/oews-sub002/internal/app/validation"
	"github.com/varunr89/oews-sub002/internal/cli/ui"
	"github.com/varunr89/oews-sub002/internal/config"
	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/domain/progress"
	"github.com/varunr89/oews-sub002/internal/infrastructure/azure"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy <database.db>",
	Short: "Deploy a SQLite database to a new Azure SQL Database",
	Long: `Deploy provisions a fresh Azure SQL Database, migrates the schema of the
given SQLite file, transfers every row, and validates the copy.

The run is all-or-nothing: if any step fails, every Azure resource created
by this run is deleted again. On success the command prints the server
endpoint and the generated administrator password. The password is shown
exactly once and stored nowhere, so copy it before closing the terminal.

Examples:
  # Deploy with defaults (subscription from AZURE_SUBSCRIPTION_ID)
  sqldeploy deploy ./shop.db

  # Deploy to a specific subscription and region
  sqldeploy deploy ./shop.db --subscription-id 00000000-0000-0000-0000-000000000000 --region westeurope

  # Larger batches, stricter validation sampling
  sqldeploy deploy ./shop.db --batch-size 1000 --sample-fraction 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().String("subscription-id", "", "Azure subscription ID (defaults to AZURE_SUBSCRIPTION_ID)")
	deployCmd.Flags().String("region", config.DefaultRegion, "Azure region for every created resource")
	deployCmd.Flags().Int("batch-size", config.DefaultBatchSize, "rows per INSERT batch during transfer")
	deployCmd.Flags().Float64("sample-fraction", config.DefaultSampleFraction, "fraction of rows sampled per table during validation")
	deployCmd.Flags().Duration("progress-interval", config.DefaultProgressInterval, "maximum silence between progress updates")
	deployCmd.Flags().Duration("provision-timeout", config.DefaultProvisionTimeout, "timeout for each Azure provisioning operation")
	deployCmd.Flags().Int("concurrency", config.DefaultConcurrency, "parallel table transfers within one dependency level")
	deployCmd.Flags().String("report-file", config.DefaultReportFile, "where to write the validation report")
	deployCmd.Flags().String("log-file", "", "mirror the deployment log to this file")
	deployCmd.Flags().String("client-ip", "", "public IPv4 address to allow through the server firewall (runs from outside Azure need this)")

	viper.BindPFlags(deployCmd.Flags())
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), args[0])
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Verbose: IsVerbose(), File: cfg.LogFile}); err != nil {
		return err
	}

	if !IsQuiet() {
		ui.Header("sqldeploy - SQLite to Azure SQL Database")
		ui.Info(fmt.Sprintf("Source: %s", cfg.SourcePath))
		ui.Info(fmt.Sprintf("Subscription: %s", cfg.SubscriptionID))
		ui.Info(fmt.Sprintf("Region: %s", cfg.Region))
		if IsVerbose() {
			ui.Info(fmt.Sprintf("Credential source: %s", azure.DetectCredentialSource()))
		}
		ui.Divider()
	}

	cred, err := azure.NewCredential()
	if err != nil {
		return err
	}
	prov, err := azure.NewProvisioner(cfg.SubscriptionID, cred, cfg.Region, cfg.ProvisionTimeout, cfg.ClientIP)
	if err != nil {
		return err
	}

	// Ctrl+C cancels the run; rollback still finishes because the
	// orchestrator detaches cleanup from this context.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := progress.NewBus()
	done := make(chan struct{})
	go renderProgress(bus.Subscribe(), done)

	svc := orchestrator.NewService(*cfg, bus, prov, orchestrator.OpenSQLiteSource, orchestrator.ConnectSQLServer)
	result, runErr := svc.Run(ctx)

	bus.Close()
	<-done

	return renderOutcome(result, runErr)
}

var stageMessages = map[string]string{
	string(job.StatusProvisioning):     "Provisioning Azure resources (this can take a few minutes)...",
	string(job.StatusMigratingSchema):  "Migrating schema...",
	string(job.StatusTransferringData): "Transferring data...",
	string(job.StatusValidating):       "Validating the transferred data...",
	string(job.StatusRollingBack):      "Rolling back created Azure resources...",
}

// renderProgress consumes the event stream until the bus closes. Batch and
// interval events redraw a single line in place; milestone events get a
// line of their own.
func renderProgress(events <-chan progress.Event, done chan<- struct{}) {
	defer close(done)

	inline := false
	endInline := func() {
		if inline {
			ui.ClearLine()
			inline = false
		}
	}

	for ev := range events {
		if IsQuiet() {
			continue
		}
		switch ev.Type {
		case progress.EventStage:
			endInline()
			if msg, ok := stageMessages[ev.Stage]; ok {
				ui.Info(msg)
			}
		case progress.EventTableStarted:
			endInline()
			if IsVerbose() {
				ui.Info(fmt.Sprintf("Table %s: %d rows", ev.Table, ev.TableRows))
			}
		case progress.EventBatch, progress.EventInterval:
			fmt.Print("\r" + ui.ProgressLine("Transferring", ev.RowsDone, ev.RowsTotal))
			inline = true
		case progress.EventTableComplete:
			endInline()
			ui.Success(fmt.Sprintf("Table %s transferred (%d rows)", ev.Table, ev.TableRows))
		case progress.EventTransferDone:
			endInline()
			ui.Success(fmt.Sprintf("All data transferred (%d rows)", ev.RowsDone))
		}
	}
	endInline()
}

// renderOutcome prints the terminal summary and maps the run outcome to an
// exit code: 0 clean, 1 failed, 2 completed with validation discrepancies.
func renderOutcome(result *orchestrator.Result, runErr error) error {
	if runErr != nil {
		renderFailure(result, runErr)
		return &ExitError{Code: ExitFailure}
	}

	renderSuccess(result)
	if result.Report != nil && result.Report.Status == validation.StatusFail {
		ui.Warning("Validation found discrepancies; the database is live but needs review")
		return &ExitError{Code: ExitValidationFailed}
	}
	return nil
}

func renderSuccess(result *orchestrator.Result) {
	if !IsQuiet() {
		ui.Divider()
		if result.Report != nil {
			renderValidationSummary(result.Report)
		}
		ui.Success(fmt.Sprintf("Deployment completed in %s", result.Job.Duration().Round(time.Second)))
	}

	// Connection details print even in quiet mode. The password exists
	// only here; it is not logged and not recoverable after this.
	ui.Info(fmt.Sprintf("Server:   %s", result.Target.Host))
	ui.Info(fmt.Sprintf("Database: %s", result.Target.Database))
	ui.Info(fmt.Sprintf("Login:    %s", result.Target.User))
	ui.Credential("Password", result.Password.Reveal())
	ui.Warning("Save the password now: it is shown once and stored nowhere")

	if !IsQuiet() && result.ReportPath != "" {
		ui.Info(fmt.Sprintf("Validation report: %s", result.ReportPath))
	}
}

func renderValidationSummary(report *validation.Report) {
	table := ui.NewTable([]string{"Table", "Source rows", "Target rows", "Sampled", "Result"})
	for _, r := range report.Results {
		verdict := "PASS"
		if len(r.Discrepancies) > 0 {
			verdict = "FAIL"
		}
		table.AddRow([]string{
			r.TableName,
			fmt.Sprintf("%d", r.RowCountSource),
			fmt.Sprintf("%d", r.RowCountTarget),
			fmt.Sprintf("%d", r.SampleSize),
			verdict,
		})
	}
	fmt.Println(table.Render())
}

func renderFailure(result *orchestrator.Result, runErr error) {
	ui.Error(fmt.Sprintf("Deployment failed: %v", runErr))

	switch result.Job.Status() {
	case job.StatusRollbackComplete:
		ui.Success("All Azure resources created by this run were removed")
	case job.StatusRollbackFailed:
		ui.Warning("Rollback could not remove every resource:")
		if result.RollbackErr != nil {
			for _, f := range result.RollbackErr.Failed {
				fmt.Printf("  - %s %s (%s): %v\n", f.Resource.Kind, f.Resource.Name, f.Resource.AzureID, f.Err)
			}
		}
		if result.CleanupPath != "" {
			ui.Info(fmt.Sprintf("Cleanup manifest with az commands: %s", result.CleanupPath))
		}
	}
}
