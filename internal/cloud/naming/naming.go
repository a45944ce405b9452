// Package naming holds the fixed resource names that make every provisioning
// step idempotent: each AWS resource is keyed by one of these names or tags,
// so a lookup before creation always finds what a previous run left behind.
package naming

import "fmt"

const (
	// Security groups. The NLB group faces the internet and is allow-listed
	// to the operator's IP; the Fargate group only accepts traffic whose
	// source is the NLB group.
	NLBSecurityGroup     = "ib-gateway-nlb-sg"
	FargateSecurityGroup = "ib-gateway-fargate-sg"

	// ElasticIPTag is the Name tag value on the allocated address.
	ElasticIPTag = "ib-gateway-eip"

	LoadBalancer = "ib-gateway-nlb"

	Cluster    = "ib-gateway-cluster"
	Service    = "ib-gateway-service"
	TaskFamily = "ib-gateway-paper"

	LogGroup = "/ecs/ib-gateway"

	// ContainerName is the single container in the task definition.
	ContainerName = "ib-gateway"
)

// Gateway API ports exposed by the container image: the socat relays for the
// live and paper TWS API sockets.
const (
	LivePort  int32 = 4003
	PaperPort int32 = 4004
)

// GatewayPorts returns both trading ports in listener order.
func GatewayPorts() []int32 {
	return []int32{LivePort, PaperPort}
}

// TargetGroup returns the port-specific target group name.
func TargetGroup(port int32) string {
	return fmt.Sprintf("ib-gateway-tg-%d", port)
}

// Endpoints formats the public endpoints clients connect to.
func Endpoints(ip string) []string {
	eps := make([]string, 0, 2)
	for _, port := range GatewayPorts() {
		eps = append(eps, fmt.Sprintf("%s:%d", ip, port))
	}
	return eps
}

// TaskDefinitionFile is the transient JSON artifact written next to the
// binary at deploy/update time and removed on teardown.
const TaskDefinitionFile = "ib-gateway-task-def.json"
