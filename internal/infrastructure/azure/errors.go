package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/varunr89/oews-sub002/internal/domain/job"
)

// AuthenticationError reports that no usable Azure credential could be
// acquired or that the provider rejected the one presented.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("azure authentication failed: %v", e.Cause)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// ProvisioningError reports a failed create call for one resource.
type ProvisioningError struct {
	Kind  job.ResourceKind
	Name  string
	Cause error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning %s %q failed: %v", e.Kind, e.Name, e.Cause)
}

func (e *ProvisioningError) Unwrap() error { return e.Cause }

// NameConflictError reports a resource name already taken. Names derive
// deterministically from the source filename, so a conflict means the
// operator must rename the source or remove the previous deployment; it
// is never retried with a generated suffix.
type NameConflictError struct {
	Kind job.ResourceKind
	Name string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("%s name %q is already taken", e.Kind, e.Name)
}

// QuotaExceededError reports that the subscription is out of capacity for
// the requested resource.
type QuotaExceededError struct {
	Kind  job.ResourceKind
	Name  string
	Cause error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded provisioning %s %q: %v", e.Kind, e.Name, e.Cause)
}

func (e *QuotaExceededError) Unwrap() error { return e.Cause }

// RollbackError carries the resources a rollback could not delete.
type RollbackError struct {
	Failed []FailedDeletion
}

func (e *RollbackError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = fmt.Sprintf("%s %q", f.Resource.Kind, f.Resource.Name)
	}
	return fmt.Sprintf("rollback left %d resource(s) behind: %s", len(e.Failed), strings.Join(names, ", "))
}

// classifyCreateError translates provider responses into the error
// taxonomy. Conflicts and quota exhaustion get their own types so the
// caller can word the operator guidance; everything else is a generic
// provisioning failure.
func classifyCreateError(kind job.ResourceKind, name string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.ErrorCode
		switch {
		case respErr.StatusCode == 409 ||
			strings.Contains(code, "AlreadyExists") ||
			strings.Contains(code, "Conflict"):
			return &NameConflictError{Kind: kind, Name: name}
		case strings.Contains(code, "Quota") ||
			strings.Contains(code, "SubscriptionLimit") ||
			respErr.StatusCode == 429:
			return &QuotaExceededError{Kind: kind, Name: name, Cause: err}
		case respErr.StatusCode == 401 || respErr.StatusCode == 403:
			return &AuthenticationError{Cause: err}
		}
	}
	return &ProvisioningError{Kind: kind, Name: name, Cause: err}
}
