package models

import "fmt"

// ServiceStatus summarizes the ECS service as reported by DescribeServices.
type ServiceStatus struct {
	Status       string
	DesiredCount int32
	RunningCount int32
	PendingCount int32
	TaskDef      string
	Events       []string // most recent first
}

// ProbeResult records a direct TCP reachability check against one endpoint.
type ProbeResult struct {
	Addr      string
	Reachable bool
	Err       string
}

func (r ProbeResult) String() string {
	if r.Reachable {
		return fmt.Sprintf("✅ %s reachable", r.Addr)
	}
	return fmt.Sprintf("❌ %s unreachable: %s", r.Addr, r.Err)
}

// ContainerDiagnostic captures why a container is (not) running.
type ContainerDiagnostic struct {
	Name     string
	Status   string
	Reason   string
	ExitCode *int32
}

// DiagnosticReport is produced by the logs command when the gateway has
// written no log streams yet: instead of tailing nothing, we explain what
// the task is doing and whether the ports answer at all.
type DiagnosticReport struct {
	TaskArn       string
	TaskStatus    string
	StoppedReason string
	Containers    []ContainerDiagnostic
	Probes        []ProbeResult
}
