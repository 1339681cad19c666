package azure

import (
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/varunr89/oews-sub002/internal/domain/job"
)

func TestClassifyCreateErrorConflict(t *testing.T) {
	cases := []*azcore.ResponseError{
		{StatusCode: 409, ErrorCode: "ResourceGroupBeingDeleted"},
		{StatusCode: 400, ErrorCode: "NameAlreadyExists"},
		{StatusCode: 400, ErrorCode: "ServerNameConflict"},
	}

	for _, respErr := range cases {
		err := classifyCreateError(job.ResourceServer, "sql-demo", respErr)
		var conflict *NameConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected NameConflictError for %s, got %T", respErr.ErrorCode, err)
		}
		if conflict.Kind != job.ResourceServer || conflict.Name != "sql-demo" {
			t.Errorf("expected server sql-demo, got %s %s", conflict.Kind, conflict.Name)
		}
	}
}

func TestClassifyCreateErrorQuota(t *testing.T) {
	cases := []*azcore.ResponseError{
		{StatusCode: 400, ErrorCode: "RegionQuotaExceeded"},
		{StatusCode: 400, ErrorCode: "SubscriptionLimitReached"},
		{StatusCode: 429, ErrorCode: "TooManyRequests"},
	}

	for _, respErr := range cases {
		err := classifyCreateError(job.ResourceDatabase, "demo", respErr)
		var quota *QuotaExceededError
		if !errors.As(err, &quota) {
			t.Fatalf("expected QuotaExceededError for %s, got %T", respErr.ErrorCode, err)
		}
		if quota.Kind != job.ResourceDatabase {
			t.Errorf("expected kind %s, got %s", job.ResourceDatabase, quota.Kind)
		}
	}
}

func TestClassifyCreateErrorAuth(t *testing.T) {
	respErr := &azcore.ResponseError{StatusCode: 403, ErrorCode: "AuthorizationFailed"}

	err := classifyCreateError(job.ResourceGroup, "rg-demo", respErr)
	var auth *AuthenticationError
	if !errors.As(err, &auth) {
		t.Fatalf("expected AuthenticationError, got %T", err)
	}
}

func TestClassifyCreateErrorGeneric(t *testing.T) {
	cause := errors.New("connection reset")

	err := classifyCreateError(job.ResourceServer, "sql-demo", cause)
	var prov *ProvisioningError
	if !errors.As(err, &prov) {
		t.Fatalf("expected ProvisioningError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
}

func TestNameConflictErrorMessage(t *testing.T) {
	err := &NameConflictError{Kind: job.ResourceGroup, Name: "rg-shop-migration"}

	msg := err.Error()
	if msg != `resource_group name "rg-shop-migration" is already taken` {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestRollbackErrorMessage(t *testing.T) {
	err := &RollbackError{Failed: []FailedDeletion{
		{Resource: job.CloudResource{Kind: job.ResourceServer, Name: "sql-demo"}, Err: errors.New("timeout")},
		{Resource: job.CloudResource{Kind: job.ResourceGroup, Name: "rg-demo"}, Err: errors.New("locked")},
	}}

	msg := err.Error()
	want := `rollback left 2 resource(s) behind: sql_server "sql-demo", resource_group "rg-demo"`
	if msg != want {
		t.Errorf("expected %q, got %q", want, msg)
	}
}
