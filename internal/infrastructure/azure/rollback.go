package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// FailedDeletion pairs a ledger entry with the error that kept it
// alive during rollback.
type FailedDeletion struct {
	Resource job.CloudResource
	Err      error
}

// RollbackResult accounts for every ledger entry a rollback touched.
// Deletion never raises; callers inspect the result instead.
type RollbackResult struct {
	Deleted []job.CloudResource
	Failed  []FailedDeletion
}

// Clean reports whether every resource was removed.
func (r RollbackResult) Clean() bool { return len(r.Failed) == 0 }

// DeleteResources walks the creation ledger in reverse and deletes each
// resource. Individual failures are recorded and the walk continues,
// because the resource group delete at the end removes contained
// resources anyway; when it succeeds, earlier failures inside the group
// are settled as deleted.
func (p *Provisioner) DeleteResources(ctx context.Context, resources []job.CloudResource) RollbackResult {
	var result RollbackResult

	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if err := p.deleteOne(ctx, r); err != nil {
			logger.Warn("failed to delete resource", "kind", string(r.Kind), "name", r.Name, "error", err)
			result.Failed = append(result.Failed, FailedDeletion{Resource: r, Err: err})
			continue
		}
		logger.Info("deleted resource", "kind", string(r.Kind), "name", r.Name)
		result.Deleted = append(result.Deleted, r)
		if r.Kind == job.ResourceGroup {
			result = settleGroupCascade(result, r.Name)
		}
	}

	return result
}

func (p *Provisioner) deleteOne(ctx context.Context, r job.CloudResource) error {
	opCtx, cancel := p.opCtx(ctx)
	defer cancel()

	group := IDSegment(r.AzureID, "resourceGroups")
	server := IDSegment(r.AzureID, "servers")

	switch r.Kind {
	case job.ResourceDatabase:
		poller, err := p.databases.BeginDelete(opCtx, group, server, r.Name, nil)
		if err != nil {
			return err
		}
		_, err = poller.PollUntilDone(opCtx, nil)
		return err

	case job.ResourceFirewall:
		_, err := p.firewalls.Delete(opCtx, group, server, r.Name, nil)
		return err

	case job.ResourceServer:
		poller, err := p.servers.BeginDelete(opCtx, group, r.Name, nil)
		if err != nil {
			return err
		}
		_, err = poller.PollUntilDone(opCtx, nil)
		return err

	case job.ResourceGroup:
		poller, err := p.groups.BeginDelete(opCtx, r.Name, nil)
		if err != nil {
			return err
		}
		_, err = poller.PollUntilDone(opCtx, nil)
		return err

	default:
		return fmt.Errorf("unknown resource kind %q", r.Kind)
	}
}

// settleGroupCascade moves failures contained in a successfully deleted
// resource group into the deleted set. Azure removed them alongside the
// group even though their direct delete calls failed.
func settleGroupCascade(result RollbackResult, group string) RollbackResult {
	var remaining []FailedDeletion
	for _, f := range result.Failed {
		if f.Resource.Kind != job.ResourceGroup && IDSegment(f.Resource.AzureID, "resourceGroups") == group {
			result.Deleted = append(result.Deleted, f.Resource)
			continue
		}
		remaining = append(remaining, f)
	}
	result.Failed = remaining
	return result
}

// IDSegment pulls the value following a named segment out of an ARM
// resource ID.
func IDSegment(resourceID, segment string) string {
	parts := strings.Split(resourceID, "/")
	for i, part := range parts {
		if strings.EqualFold(part, segment) && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
