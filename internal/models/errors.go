package models

import "fmt"

// ProviderError represents cloud provider operation errors
type ProviderError struct {
	Provider  string // "aws"
	Operation string // "deploy", "update-ip", "delete", etc.
	Resource  string // security group name, load balancer name, etc.
	Cause     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error during %s operation on resource '%s': %v",
		e.Provider, e.Operation, e.Resource, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// PrerequisiteError represents a missing account-side prerequisite that makes
// the requested operation impossible (e.g., not enough public subnets for the
// load balancer). These abort the command immediately; nothing is created.
type PrerequisiteError struct {
	Requirement string
	Found       string
}

func (e *PrerequisiteError) Error() string {
	if e.Found != "" {
		return fmt.Sprintf("prerequisite not met: %s (found: %s)", e.Requirement, e.Found)
	}
	return fmt.Sprintf("prerequisite not met: %s", e.Requirement)
}

// ValidationError represents a settings validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}
