package azure

import (
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// CredentialSource indicates how credentials were obtained.
type CredentialSource string

const (
	// CredentialSourceDefault uses the DefaultAzureCredential chain.
	CredentialSourceDefault CredentialSource = "default"

	// CredentialSourceServicePrincipal uses a service principal from
	// environment variables.
	CredentialSourceServicePrincipal CredentialSource = "service_principal"

	// CredentialSourceManagedIdentity uses a managed identity.
	CredentialSourceManagedIdentity CredentialSource = "managed_identity"

	// CredentialSourceCLI uses cached Azure CLI credentials.
	CredentialSourceCLI CredentialSource = "cli"
)

// DetectCredentialSource reports how the credential chain will most
// likely authenticate. The answer is informational: acquisition always
// goes through the default chain, which probes the same order.
func DetectCredentialSource() CredentialSource {
	if os.Getenv("AZURE_CLIENT_ID") != "" &&
		os.Getenv("AZURE_CLIENT_SECRET") != "" &&
		os.Getenv("AZURE_TENANT_ID") != "" {
		return CredentialSourceServicePrincipal
	}

	if os.Getenv("AZURE_CLIENT_ID") != "" && os.Getenv("AZURE_CLIENT_SECRET") == "" {
		return CredentialSourceManagedIdentity
	}

	if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(filepath.Join(home, ".azure", "azureProfile.json")); err == nil {
			return CredentialSourceCLI
		}
	}

	return CredentialSourceDefault
}

// NewCredential acquires a token credential through the default chain.
// The chain covers service principals, managed identities and Azure CLI
// logins without any tool-specific configuration.
func NewCredential() (azcore.TokenCredential, error) {
	source := DetectCredentialSource()
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, &AuthenticationError{Cause: err}
	}
	logger.Info("acquired Azure credential", "source", string(source))
	return cred, nil
}
