// Package config loads and validates the deployment configuration. A
// configuration is built once per invocation and never mutated afterwards.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigurationError reports an invalid or missing setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Setting, e.Reason)
}

// DeploymentConfiguration is the validated input for one deployment run.
type DeploymentConfiguration struct {
	// SourcePath is the SQLite database file to deploy.
	SourcePath string

	// SubscriptionID is the Azure subscription that receives the resources.
	SubscriptionID string

	// Region is the Azure location for every created resource.
	Region string

	// BatchSize is the number of rows per INSERT batch during transfer.
	BatchSize int

	// SampleFraction is the share of rows sampled per table during
	// validation, in (0, 1].
	SampleFraction float64

	// ProgressInterval caps the silence between progress events.
	ProgressInterval time.Duration

	// ProvisionTimeout bounds each long-running provisioning call.
	ProvisionTimeout time.Duration

	// TransferConcurrency bounds parallel table transfers within one
	// dependency level.
	TransferConcurrency int

	// ReportFile is where the validation report is written.
	ReportFile string

	// LogFile mirrors the deployment log to a file when set.
	LogFile string

	// ClientIP, when set, opens an extra firewall rule for this IPv4
	// address so a run from outside Azure can reach the database.
	ClientIP string
}

const (
	DefaultRegion           = "eastus"
	DefaultBatchSize        = 500
	DefaultSampleFraction   = 0.10
	DefaultProgressInterval = 5 * time.Second
	DefaultProvisionTimeout = 30 * time.Minute
	DefaultConcurrency      = 4
	DefaultReportFile       = "validation-report.json"
)

// SetDefaults registers default values on v. Call before binding flags so
// flag values still win.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("region", DefaultRegion)
	v.SetDefault("batch-size", DefaultBatchSize)
	v.SetDefault("sample-fraction", DefaultSampleFraction)
	v.SetDefault("progress-interval", DefaultProgressInterval)
	v.SetDefault("provision-timeout", DefaultProvisionTimeout)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("report-file", DefaultReportFile)
}

// Load resolves the configuration for sourcePath from v and validates it.
// The subscription ID falls back to AZURE_SUBSCRIPTION_ID, matching the
// Azure SDK's own environment conventions.
func Load(v *viper.Viper, sourcePath string) (*DeploymentConfiguration, error) {
	subscription := v.GetString("subscription-id")
	if subscription == "" {
		subscription = os.Getenv("AZURE_SUBSCRIPTION_ID")
	}

	cfg := &DeploymentConfiguration{
		SourcePath:          sourcePath,
		SubscriptionID:      subscription,
		Region:              v.GetString("region"),
		BatchSize:           v.GetInt("batch-size"),
		SampleFraction:      v.GetFloat64("sample-fraction"),
		ProgressInterval:    v.GetDuration("progress-interval"),
		ProvisionTimeout:    v.GetDuration("provision-timeout"),
		TransferConcurrency: v.GetInt("concurrency"),
		ReportFile:          v.GetString("report-file"),
		LogFile:             v.GetString("log-file"),
		ClientIP:            v.GetString("client-ip"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and returns the first violation.
func (c *DeploymentConfiguration) Validate() error {
	if strings.TrimSpace(c.SourcePath) == "" {
		return &ConfigurationError{Setting: "source", Reason: "source database path is required"}
	}
	info, err := os.Stat(c.SourcePath)
	if err != nil {
		return &ConfigurationError{Setting: "source", Reason: fmt.Sprintf("cannot read %s: %v", c.SourcePath, err)}
	}
	if info.IsDir() {
		return &ConfigurationError{Setting: "source", Reason: fmt.Sprintf("%s is a directory, not a database file", c.SourcePath)}
	}
	if c.SubscriptionID == "" {
		return &ConfigurationError{Setting: "subscription-id", Reason: "set --subscription-id or AZURE_SUBSCRIPTION_ID"}
	}
	if strings.TrimSpace(c.Region) == "" {
		return &ConfigurationError{Setting: "region", Reason: "region is required"}
	}
	if c.BatchSize <= 0 {
		return &ConfigurationError{Setting: "batch-size", Reason: fmt.Sprintf("must be positive, got %d", c.BatchSize)}
	}
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return &ConfigurationError{Setting: "sample-fraction", Reason: fmt.Sprintf("must be in (0, 1], got %g", c.SampleFraction)}
	}
	if c.ProgressInterval <= 0 {
		return &ConfigurationError{Setting: "progress-interval", Reason: "must be positive"}
	}
	if c.ProvisionTimeout <= 0 {
		return &ConfigurationError{Setting: "provision-timeout", Reason: "must be positive"}
	}
	if c.TransferConcurrency < 1 {
		return &ConfigurationError{Setting: "concurrency", Reason: fmt.Sprintf("must be at least 1, got %d", c.TransferConcurrency)}
	}
	if strings.TrimSpace(c.ReportFile) == "" {
		return &ConfigurationError{Setting: "report-file", Reason: "report file path is required"}
	}
	if c.ClientIP != "" {
		ip := net.ParseIP(c.ClientIP)
		if ip == nil || ip.To4() == nil {
			return &ConfigurationError{Setting: "client-ip", Reason: fmt.Sprintf("%q is not an IPv4 address", c.ClientIP)}
		}
	}
	return nil
}

// BaseName returns the source filename without directory or extension,
// lowercased. Resource names derive from it, so the same source file always
// targets the same Azure names.
func (c *DeploymentConfiguration) BaseName() string {
	base := filepath.Base(c.SourcePath)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
