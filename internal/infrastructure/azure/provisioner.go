package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"

	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// Target describes the provisioned endpoint a deployment connects to.
// The administrator password travels separately; it is never stored on
// any long-lived struct.
type Target struct {
	Host     string
	Database string
	User     string
}

// Provisioner creates and deletes the Azure resources backing one
// deployment: resource group, logical SQL server, serverless database
// and the firewall rules that let clients in.
type Provisioner struct {
	groups    *armresources.ResourceGroupsClient
	servers   *armsql.ServersClient
	databases *armsql.DatabasesClient
	firewalls *armsql.FirewallRulesClient

	region   string
	timeout  time.Duration
	clientIP string
}

// NewProvisioner builds the ARM clients for one subscription. A non-empty
// clientIP adds a firewall rule for that address next to the
// Azure-services rule.
func NewProvisioner(subscriptionID string, cred azcore.TokenCredential, region string, timeout time.Duration, clientIP string) (*Provisioner, error) {
	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group client: %w", err)
	}
	clientFactory, err := armsql.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQL client: %w", err)
	}
	return &Provisioner{
		groups:    groups,
		servers:   clientFactory.NewServersClient(),
		databases: clientFactory.NewDatabasesClient(),
		firewalls: clientFactory.NewFirewallRulesClient(),
		region:    region,
		timeout:   timeout,
		clientIP:  clientIP,
	}, nil
}

// opCtx bounds a single provider call. Every create and delete runs
// under its own deadline so one stuck operation cannot hold the job
// open indefinitely.
func (p *Provisioner) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

// Provision creates the full resource set in dependency order and
// records each resource on the job ledger immediately after its create
// succeeds, so rollback sees everything that exists even when a later
// step fails.
func (p *Provisioner) Provision(ctx context.Context, j *job.Job, names ResourceNames, password logger.Secret) (Target, error) {
	if err := p.createResourceGroup(ctx, j, names.ResourceGroup); err != nil {
		return Target{}, err
	}

	host, err := p.createServer(ctx, j, names, password)
	if err != nil {
		return Target{}, err
	}

	if err := p.createFirewallRules(ctx, j, names); err != nil {
		return Target{}, err
	}

	if err := p.createDatabase(ctx, j, names); err != nil {
		return Target{}, err
	}

	return Target{Host: host, Database: names.Database, User: AdminUser}, nil
}

func (p *Provisioner) createResourceGroup(ctx context.Context, j *job.Job, name string) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	// CreateOrUpdate would silently adopt an existing group. A group
	// left over from an earlier run is an operator problem, not ours to
	// overwrite.
	exists, err := p.groups.CheckExistence(opCtx, name, nil)
	if err != nil {
		return classifyCreateError(job.ResourceGroup, name, err)
	}
	if exists.Success {
		return &NameConflictError{Kind: job.ResourceGroup, Name: name}
	}

	resp, err := p.groups.CreateOrUpdate(opCtx, name, armresources.ResourceGroup{
		Location: to.Ptr(p.region),
		Tags: map[string]*string{
			"created-by": to.Ptr("sqldeploy"),
		},
	}, nil)
	if err != nil {
		return classifyCreateError(job.ResourceGroup, name, err)
	}

	j.RecordResource(job.ResourceGroup, name, deref(resp.ID))
	logger.Info("created resource group", "name", name, "region", p.region)
	return nil
}

func (p *Provisioner) createServer(ctx context.Context, j *job.Job, names ResourceNames, password logger.Secret) (string, error) {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	avail, err := p.servers.CheckNameAvailability(opCtx, armsql.CheckNameAvailabilityRequest{
		Name: to.Ptr(names.Server),
		Type: to.Ptr("Microsoft.Sql/servers"),
	}, nil)
	if err != nil {
		return "", classifyCreateError(job.ResourceServer, names.Server, err)
	}
	if avail.Available != nil && !*avail.Available {
		if avail.Reason != nil && *avail.Reason == armsql.CheckNameAvailabilityReasonAlreadyExists {
			return "", &NameConflictError{Kind: job.ResourceServer, Name: names.Server}
		}
		return "", &ProvisioningError{
			Kind:  job.ResourceServer,
			Name:  names.Server,
			Cause: fmt.Errorf("server name rejected: %s", deref(avail.Message)),
		}
	}

	started := time.Now()
	poller, err := p.servers.BeginCreateOrUpdate(opCtx, names.ResourceGroup, names.Server, armsql.Server{
		Location: to.Ptr(p.region),
		Properties: &armsql.ServerProperties{
			AdministratorLogin:         to.Ptr(AdminUser),
			AdministratorLoginPassword: to.Ptr(password.Reveal()),
			Version:                    to.Ptr("12.0"),
			MinimalTLSVersion:          to.Ptr("1.2"),
			PublicNetworkAccess:        to.Ptr(armsql.ServerNetworkAccessFlagEnabled),
		},
	}, nil)
	if err != nil {
		return "", classifyCreateError(job.ResourceServer, names.Server, err)
	}
	resp, err := poller.PollUntilDone(opCtx, nil)
	if err != nil {
		return "", classifyCreateError(job.ResourceServer, names.Server, err)
	}

	j.RecordResource(job.ResourceServer, names.Server, deref(resp.ID))

	host := names.Server + ".database.windows.net"
	if resp.Properties != nil && resp.Properties.FullyQualifiedDomainName != nil {
		host = *resp.Properties.FullyQualifiedDomainName
	}
	logger.Info("created SQL server", "name", names.Server, "host", host, "elapsed", time.Since(started).Round(time.Second))
	return host, nil
}

// createFirewallRules opens the server: always the 0.0.0.0 sentinel rule
// that admits Azure-hosted clients, plus one rule for the operator's
// address when a client IP was configured. Without the latter a run from
// outside Azure can provision but never connect.
func (p *Provisioner) createFirewallRules(ctx context.Context, j *job.Job, names ResourceNames) error {
	if err := p.createFirewallRule(ctx, j, names, names.FirewallRule, "0.0.0.0", "0.0.0.0"); err != nil {
		return err
	}
	if p.clientIP == "" {
		return nil
	}
	return p.createFirewallRule(ctx, j, names, clientRuleName, p.clientIP, p.clientIP)
}

func (p *Provisioner) createFirewallRule(ctx context.Context, j *job.Job, names ResourceNames, rule, startIP, endIP string) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	resp, err := p.firewalls.CreateOrUpdate(opCtx, names.ResourceGroup, names.Server, rule, armsql.FirewallRule{
		Properties: &armsql.ServerFirewallRuleProperties{
			StartIPAddress: to.Ptr(startIP),
			EndIPAddress:   to.Ptr(endIP),
		},
	}, nil)
	if err != nil {
		return classifyCreateError(job.ResourceFirewall, rule, err)
	}

	j.RecordResource(job.ResourceFirewall, rule, deref(resp.ID))
	logger.Info("created firewall rule", "name", rule, "server", names.Server, "range", startIP+"-"+endIP)
	return nil
}

func (p *Provisioner) createDatabase(ctx context.Context, j *job.Job, names ResourceNames) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	started := time.Now()
	poller, err := p.databases.BeginCreateOrUpdate(opCtx, names.ResourceGroup, names.Server, names.Database, armsql.Database{
		Location: to.Ptr(p.region),
		SKU: &armsql.SKU{
			Name:     to.Ptr("GP_S_Gen5"),
			Tier:     to.Ptr("GeneralPurpose"),
			Family:   to.Ptr("Gen5"),
			Capacity: to.Ptr(int32(1)),
		},
		Properties: &armsql.DatabaseProperties{
			AutoPauseDelay:                   to.Ptr(int32(60)),
			MinCapacity:                      to.Ptr(0.5),
			RequestedBackupStorageRedundancy: to.Ptr(armsql.BackupStorageRedundancyLocal),
		},
	}, nil)
	if err != nil {
		return classifyCreateError(job.ResourceDatabase, names.Database, err)
	}
	resp, err := poller.PollUntilDone(opCtx, nil)
	if err != nil {
		return classifyCreateError(job.ResourceDatabase, names.Database, err)
	}

	j.RecordResource(job.ResourceDatabase, names.Database, deref(resp.ID))
	logger.Info("created database", "name", names.Database, "sku", "GP_S_Gen5", "elapsed", time.Since(started).Round(time.Second))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
