package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/taskdef"
)

// errNotDeployed marks lookups against a stack that has never been deployed.
var errNotDeployed = errors.New("service not found; run deploy first")

// EnsureLogGroup find-or-creates /ecs/ib-gateway.
func (p *Provider) EnsureLogGroup(ctx context.Context) error {
	_, err := ensureResource(ctx, ensureSpec{
		kind: "log group",
		name: naming.LogGroup,
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.Logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
				LogGroupNamePrefix: aws.String(naming.LogGroup),
			})
			if err != nil {
				return "", false, err
			}
			for _, g := range out.LogGroups {
				if aws.ToString(g.LogGroupName) == naming.LogGroup {
					return naming.LogGroup, true, nil
				}
			}
			return "", false, nil
		},
		create: func(ctx context.Context) (string, error) {
			_, err := p.Logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
				LogGroupName: aws.String(naming.LogGroup),
			})
			if err != nil {
				return "", err
			}
			return naming.LogGroup, nil
		},
		duplicateCodes: []string{codeLogsExists},
	})
	return err
}

// EnsureCluster find-or-creates the ECS cluster.
func (p *Provider) EnsureCluster(ctx context.Context) (string, error) {
	return ensureResource(ctx, ensureSpec{
		kind: "cluster",
		name: naming.Cluster,
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.ECS.DescribeClusters(ctx, &ecs.DescribeClustersInput{
				Clusters: []string{naming.Cluster},
			})
			if err != nil {
				return "", false, err
			}
			for _, c := range out.Clusters {
				// A deleted cluster lingers as INACTIVE under the same name.
				if aws.ToString(c.Status) == "ACTIVE" {
					return aws.ToString(c.ClusterArn), true, nil
				}
			}
			return "", false, nil
		},
		create: func(ctx context.Context) (string, error) {
			out, err := p.ECS.CreateCluster(ctx, &ecs.CreateClusterInput{
				ClusterName: aws.String(naming.Cluster),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Cluster.ClusterArn), nil
		},
	})
}

// RegisterTaskDefinition registers a new revision of the gateway task family.
func (p *Provider) RegisterTaskDefinition(ctx context.Context, def *taskdef.Definition) (string, error) {
	out, err := p.ECS.RegisterTaskDefinition(ctx, def.RegisterInput())
	if err != nil {
		return "", &models.ProviderError{Provider: "aws", Operation: "register-task-definition", Resource: naming.TaskFamily, Cause: err}
	}
	return aws.ToString(out.TaskDefinition.TaskDefinitionArn), nil
}

// TargetBinding wires one target group to the container port it fronts.
type TargetBinding struct {
	TargetGroupArn string
	Port           int32
}

// ServiceParams carries everything EnsureService needs to create the service.
type ServiceParams struct {
	TaskDefinitionArn string
	Subnets           []string
	SecurityGroupID   string // the Fargate-facing group
	Bindings          []TargetBinding
}

// EnsureService find-or-creates the gateway service with desired count 1.
// When the service already exists it is moved onto the given task definition
// instead.
func (p *Provider) EnsureService(ctx context.Context, params ServiceParams) error {
	existing, err := p.describeService(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		// Re-deploy onto the (possibly new) task definition revision.
		return p.UpdateServiceTaskDefinition(ctx, params.TaskDefinitionArn)
	}

	bindings := make([]ecstypes.LoadBalancer, 0, len(params.Bindings))
	for _, b := range params.Bindings {
		bindings = append(bindings, ecstypes.LoadBalancer{
			TargetGroupArn: aws.String(b.TargetGroupArn),
			ContainerName:  aws.String(naming.ContainerName),
			ContainerPort:  aws.Int32(b.Port),
		})
	}

	_, err = p.ECS.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(naming.Cluster),
		ServiceName:    aws.String(naming.Service),
		TaskDefinition: aws.String(params.TaskDefinitionArn),
		DesiredCount:   aws.Int32(1),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        params.Subnets,
				SecurityGroups: []string{params.SecurityGroupID},
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		LoadBalancers:                 bindings,
		HealthCheckGracePeriodSeconds: aws.Int32(300),
	})
	if err != nil {
		return &models.ProviderError{Provider: "aws", Operation: "create-service", Resource: naming.Service, Cause: err}
	}
	return nil
}

// describeService returns the active service, or nil when it does not exist.
func (p *Provider) describeService(ctx context.Context) (*ecstypes.Service, error) {
	out, err := p.ECS.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(naming.Cluster),
		Services: []string{naming.Service},
	})
	if err != nil {
		if isAPIErrorCode(err, codeClusterNotFound, codeServiceNotFound) {
			return nil, nil
		}
		return nil, &models.ProviderError{Provider: "aws", Operation: "describe-service", Resource: naming.Service, Cause: err}
	}
	for i := range out.Services {
		if aws.ToString(out.Services[i].Status) != "INACTIVE" {
			return &out.Services[i], nil
		}
	}
	return nil, nil
}

// ServiceStatus reads the service's counts and most recent events.
func (p *Provider) ServiceStatus(ctx context.Context) (*models.ServiceStatus, error) {
	svc, err := p.describeService(ctx)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, &models.ProviderError{
			Provider:  "aws",
			Operation: "status",
			Resource:  naming.Service,
			Cause:     errNotDeployed,
		}
	}

	status := &models.ServiceStatus{
		Status:       aws.ToString(svc.Status),
		DesiredCount: svc.DesiredCount,
		RunningCount: svc.RunningCount,
		PendingCount: svc.PendingCount,
		TaskDef:      aws.ToString(svc.TaskDefinition),
	}
	for i, ev := range svc.Events {
		if i == 3 {
			break
		}
		status.Events = append(status.Events, aws.ToString(ev.Message))
	}
	return status, nil
}

// SetDesiredCount scales the service (0 = stop, 1 = start).
func (p *Provider) SetDesiredCount(ctx context.Context, count int32) error {
	_, err := p.ECS.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(naming.Cluster),
		Service:      aws.String(naming.Service),
		DesiredCount: aws.Int32(count),
	})
	if err != nil {
		return &models.ProviderError{Provider: "aws", Operation: "scale", Resource: naming.Service, Cause: err}
	}
	return nil
}

// ForceNewDeployment restarts the service's task without changing anything else.
func (p *Provider) ForceNewDeployment(ctx context.Context) error {
	_, err := p.ECS.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:            aws.String(naming.Cluster),
		Service:            aws.String(naming.Service),
		ForceNewDeployment: true,
	})
	if err != nil {
		return &models.ProviderError{Provider: "aws", Operation: "restart", Resource: naming.Service, Cause: err}
	}
	return nil
}

// UpdateServiceTaskDefinition forces the service onto a new revision.
func (p *Provider) UpdateServiceTaskDefinition(ctx context.Context, taskDefArn string) error {
	_, err := p.ECS.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:            aws.String(naming.Cluster),
		Service:            aws.String(naming.Service),
		TaskDefinition:     aws.String(taskDefArn),
		ForceNewDeployment: true,
	})
	if err != nil {
		return &models.ProviderError{Provider: "aws", Operation: "update", Resource: naming.Service, Cause: err}
	}
	return nil
}

// WaitServiceStable blocks until ECS reports the service stable, or the
// timeout/context expires. Polling is entirely the SDK waiter's.
func (p *Provider) WaitServiceStable(ctx context.Context, timeout time.Duration) error {
	waiter := ecs.NewServicesStableWaiter(p.ECS)
	return waiter.Wait(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(naming.Cluster),
		Services: []string{naming.Service},
	}, timeout)
}
