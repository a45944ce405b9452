package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

type fakeResource struct {
	id      string
	exists  bool
	creates int
}

func (f *fakeResource) spec() ensureSpec {
	return ensureSpec{
		kind: "test resource",
		name: "fixed-name",
		lookup: func(context.Context) (string, bool, error) {
			return f.id, f.exists, nil
		},
		create: func(context.Context) (string, error) {
			f.creates++
			f.id = fmt.Sprintf("id-%d", f.creates)
			f.exists = true
			return f.id, nil
		},
	}
}

func TestEnsureResource_CreatesOnceThenReuses(t *testing.T) {
	f := &fakeResource{}
	ctx := context.Background()

	first, err := ensureResource(ctx, f.spec())
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := ensureResource(ctx, f.spec())
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if f.creates != 1 {
		t.Errorf("create called %d times, want 1", f.creates)
	}
	if first != second {
		t.Errorf("identifiers differ: %q vs %q", first, second)
	}
}

func TestEnsureResource_LookupErrorAborts(t *testing.T) {
	spec := ensureSpec{
		kind:   "test resource",
		name:   "fixed-name",
		lookup: func(context.Context) (string, bool, error) { return "", false, errors.New("boom") },
		create: func(context.Context) (string, error) {
			t.Fatal("create must not run when lookup fails")
			return "", nil
		},
	}
	if _, err := ensureResource(context.Background(), spec); err == nil {
		t.Fatal("expected error")
	}
}

type stubAPIError struct{ code string }

func (e stubAPIError) Error() string                 { return e.code }
func (e stubAPIError) ErrorCode() string             { return e.code }
func (e stubAPIError) ErrorMessage() string          { return e.code }
func (e stubAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestEnsureResource_DuplicateOnCreateFallsBackToLookup(t *testing.T) {
	// Simulates losing a create race: lookup misses, create reports a
	// duplicate, re-lookup finds the winner's resource.
	calls := 0
	spec := ensureSpec{
		kind: "security group",
		name: "ib-gateway-nlb-sg",
		lookup: func(context.Context) (string, bool, error) {
			calls++
			if calls == 1 {
				return "", false, nil
			}
			return "sg-existing", true, nil
		},
		create: func(context.Context) (string, error) {
			return "", stubAPIError{code: codeSGDuplicate}
		},
		duplicateCodes: []string{codeSGDuplicate},
	}
	id, err := ensureResource(context.Background(), spec)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if id != "sg-existing" {
		t.Errorf("id = %q, want sg-existing", id)
	}
}

func TestEnsureResource_UnexpectedCreateErrorPropagates(t *testing.T) {
	spec := ensureSpec{
		kind:   "security group",
		name:   "ib-gateway-nlb-sg",
		lookup: func(context.Context) (string, bool, error) { return "", false, nil },
		create: func(context.Context) (string, error) {
			return "", stubAPIError{code: "UnauthorizedOperation"}
		},
		duplicateCodes: []string{codeSGDuplicate},
	}
	if _, err := ensureResource(context.Background(), spec); err == nil {
		t.Fatal("expected error")
	}
}

func TestIsAPIErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("operation failed: %w", stubAPIError{code: codeLBNotFound})
	if !isAPIErrorCode(wrapped, codeLBNotFound) {
		t.Error("expected wrapped API error code to match")
	}
	if isAPIErrorCode(wrapped, codeTGNotFound) {
		t.Error("unexpected match for different code")
	}
	if isAPIErrorCode(errors.New("plain"), codeLBNotFound) {
		t.Error("plain error must not match")
	}
}
