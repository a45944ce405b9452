package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// ensureSpec describes one find-or-create step: look the resource up by its
// fixed name, create it only if the lookup came back empty, and always hand
// back a stable identifier. Running the same step twice must never create a
// second resource.
type ensureSpec struct {
	kind   string // "security group", "target group", ...
	name   string // fixed name or tag from the naming package
	lookup func(context.Context) (id string, found bool, err error)
	create func(context.Context) (id string, err error)
	// duplicateCodes are API error codes meaning "someone created it between
	// our lookup and create"; on those we re-lookup instead of failing.
	duplicateCodes []string
}

// ensureResource runs one find-or-create step.
func ensureResource(ctx context.Context, spec ensureSpec) (string, error) {
	id, found, err := spec.lookup(ctx)
	if err != nil {
		return "", &models.ProviderError{
			Provider:  "aws",
			Operation: "lookup",
			Resource:  fmt.Sprintf("%s %s", spec.kind, spec.name),
			Cause:     err,
		}
	}
	if found {
		fmt.Printf("♻️  Reusing %s: %s (%s)\n", spec.kind, spec.name, id)
		return id, nil
	}

	id, err = spec.create(ctx)
	if err != nil {
		if isAPIErrorCode(err, spec.duplicateCodes...) {
			if id2, found2, lerr := spec.lookup(ctx); lerr == nil && found2 {
				fmt.Printf("♻️  Reusing %s: %s (%s)\n", spec.kind, spec.name, id2)
				return id2, nil
			}
		}
		return "", &models.ProviderError{
			Provider:  "aws",
			Operation: "create",
			Resource:  fmt.Sprintf("%s %s", spec.kind, spec.name),
			Cause:     err,
		}
	}
	fmt.Printf("✅ Created %s: %s (%s)\n", spec.kind, spec.name, id)
	return id, nil
}

// isAPIErrorCode reports whether err is a smithy API error with one of the
// given codes.
func isAPIErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// Error codes classified as "expected, ignorable" during provisioning and
// teardown. Anything outside these aborts the command.
const (
	codeSGDuplicate       = "InvalidGroup.Duplicate"
	codeSGNotFound        = "InvalidGroup.NotFound"
	codePermDuplicate     = "InvalidPermission.Duplicate"
	codePermNotFound      = "InvalidPermission.NotFound"
	codeAllocNotFound     = "InvalidAllocationID.NotFound"
	codeLBDuplicate       = "DuplicateLoadBalancerName"
	codeLBNotFound        = "LoadBalancerNotFound"
	codeTGDuplicate       = "DuplicateTargetGroupName"
	codeTGNotFound        = "TargetGroupNotFound"
	codeListenerDuplicate = "DuplicateListener"
	codeLogsExists        = "ResourceAlreadyExistsException"
	codeLogsNotFound      = "ResourceNotFoundException"
	codeClusterNotFound   = "ClusterNotFoundException"
	codeServiceNotFound   = "ServiceNotFoundException"
)
