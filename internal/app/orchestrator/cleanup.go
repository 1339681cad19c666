package orchestrator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/varunr89/oews-sub002/internal/domain/job"
	"github.com/varunr89/oews-sub002/internal/infrastructure/azure"
)

const cleanupFileName = "manual-cleanup.yaml"

// cleanupManifest is the file handed to the operator when rollback
// leaves resources behind. Each entry carries the exact az command
// that removes it.
type cleanupManifest struct {
	JobID     string            `yaml:"job_id"`
	WrittenAt time.Time         `yaml:"written_at"`
	Note      string            `yaml:"note"`
	Resources []cleanupResource `yaml:"resources"`
}

type cleanupResource struct {
	Kind          string `yaml:"kind"`
	Name          string `yaml:"name"`
	AzureID       string `yaml:"azure_id,omitempty"`
	Error         string `yaml:"error"`
	DeleteCommand string `yaml:"delete_command,omitempty"`
}

func writeCleanupFile(path string, j *job.Job, failed []azure.FailedDeletion) (string, error) {
	manifest := cleanupManifest{
		JobID:     j.ID,
		WrittenAt: time.Now().UTC(),
		Note:      "rollback could not delete these resources; remove them manually, resource group last",
	}
	for _, f := range failed {
		manifest.Resources = append(manifest.Resources, cleanupResource{
			Kind:          string(f.Resource.Kind),
			Name:          f.Resource.Name,
			AzureID:       f.Resource.AzureID,
			Error:         f.Err.Error(),
			DeleteCommand: deleteCommand(f.Resource),
		})
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to render cleanup manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cleanup manifest: %w", err)
	}
	return path, nil
}

// deleteCommand renders the az CLI invocation that removes one
// resource.
func deleteCommand(r job.CloudResource) string {
	group := azure.IDSegment(r.AzureID, "resourceGroups")
	server := azure.IDSegment(r.AzureID, "servers")

	switch r.Kind {
	case job.ResourceGroup:
		return fmt.Sprintf("az group delete --name %s --yes", r.Name)
	case job.ResourceServer:
		return fmt.Sprintf("az sql server delete --name %s --resource-group %s --yes", r.Name, group)
	case job.ResourceDatabase:
		return fmt.Sprintf("az sql db delete --name %s --server %s --resource-group %s --yes", r.Name, server, group)
	case job.ResourceFirewall:
		return fmt.Sprintf("az sql server firewall-rule delete --name %s --server %s --resource-group %s", r.Name, server, group)
	default:
		return ""
	}
}
