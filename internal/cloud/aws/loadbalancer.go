package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// EnsureLoadBalancer find-or-creates the network load balancer, bound to the
// Elastic IP on the first public subnet and guarded by the NLB security
// group. TCP passthrough only; the gateway's wire protocol is opaque to us.
func (p *Provider) EnsureLoadBalancer(ctx context.Context, subnetID, allocationID, securityGroupID string) (string, error) {
	return ensureResource(ctx, ensureSpec{
		kind: "load balancer",
		name: naming.LoadBalancer,
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.ELB.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
				Names: []string{naming.LoadBalancer},
			})
			if err != nil {
				if isAPIErrorCode(err, codeLBNotFound) {
					return "", false, nil
				}
				return "", false, err
			}
			if len(out.LoadBalancers) == 0 {
				return "", false, nil
			}
			return aws.ToString(out.LoadBalancers[0].LoadBalancerArn), true, nil
		},
		create: func(ctx context.Context) (string, error) {
			out, err := p.ELB.CreateLoadBalancer(ctx, &elbv2.CreateLoadBalancerInput{
				Name:   aws.String(naming.LoadBalancer),
				Type:   elbv2types.LoadBalancerTypeEnumNetwork,
				Scheme: elbv2types.LoadBalancerSchemeEnumInternetFacing,
				SubnetMappings: []elbv2types.SubnetMapping{{
					SubnetId:     aws.String(subnetID),
					AllocationId: aws.String(allocationID),
				}},
				SecurityGroups: []string{securityGroupID},
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.LoadBalancers[0].LoadBalancerArn), nil
		},
		duplicateCodes: []string{codeLBDuplicate},
	})
}

// EnsureTargetGroup find-or-creates the port-specific target group with a
// plain TCP health check against IP targets (Fargate awsvpc tasks).
func (p *Provider) EnsureTargetGroup(ctx context.Context, vpcID string, port int32) (string, error) {
	name := naming.TargetGroup(port)
	return ensureResource(ctx, ensureSpec{
		kind: "target group",
		name: name,
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.ELB.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
				Names: []string{name},
			})
			if err != nil {
				if isAPIErrorCode(err, codeTGNotFound) {
					return "", false, nil
				}
				return "", false, err
			}
			if len(out.TargetGroups) == 0 {
				return "", false, nil
			}
			return aws.ToString(out.TargetGroups[0].TargetGroupArn), true, nil
		},
		create: func(ctx context.Context) (string, error) {
			out, err := p.ELB.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
				Name:                aws.String(name),
				Protocol:            elbv2types.ProtocolEnumTcp,
				Port:                aws.Int32(port),
				VpcId:               aws.String(vpcID),
				TargetType:          elbv2types.TargetTypeEnumIp,
				HealthCheckProtocol: elbv2types.ProtocolEnumTcp,
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
		},
		duplicateCodes: []string{codeTGDuplicate},
	})
}

// EnsureListener find-or-creates the TCP listener forwarding port to the
// target group. Listeners have no name; the lookup key is the port on the
// load balancer.
func (p *Provider) EnsureListener(ctx context.Context, lbArn, tgArn string, port int32) error {
	_, err := ensureResource(ctx, ensureSpec{
		kind: "listener",
		name: fmt.Sprintf("%s:%d", naming.LoadBalancer, port),
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.ELB.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
				LoadBalancerArn: aws.String(lbArn),
			})
			if err != nil {
				return "", false, err
			}
			for _, l := range out.Listeners {
				if aws.ToInt32(l.Port) == port {
					return aws.ToString(l.ListenerArn), true, nil
				}
			}
			return "", false, nil
		},
		create: func(ctx context.Context) (string, error) {
			out, err := p.ELB.CreateListener(ctx, &elbv2.CreateListenerInput{
				LoadBalancerArn: aws.String(lbArn),
				Protocol:        elbv2types.ProtocolEnumTcp,
				Port:            aws.Int32(port),
				DefaultActions: []elbv2types.Action{{
					Type:           elbv2types.ActionTypeEnumForward,
					TargetGroupArn: aws.String(tgArn),
				}},
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Listeners[0].ListenerArn), nil
		},
		duplicateCodes: []string{codeListenerDuplicate},
	})
	return err
}

// FindLoadBalancer returns the NLB's ARN, or "" when it does not exist.
func (p *Provider) FindLoadBalancer(ctx context.Context) (string, error) {
	out, err := p.ELB.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{naming.LoadBalancer},
	})
	if err != nil {
		if isAPIErrorCode(err, codeLBNotFound) {
			return "", nil
		}
		return "", &models.ProviderError{Provider: "aws", Operation: "lookup", Resource: naming.LoadBalancer, Cause: err}
	}
	if len(out.LoadBalancers) == 0 {
		return "", nil
	}
	return aws.ToString(out.LoadBalancers[0].LoadBalancerArn), nil
}

// DeleteLoadBalancer deletes the NLB and blocks until it is gone, so the
// target groups and security groups behind it can be deleted next.
func (p *Provider) DeleteLoadBalancer(ctx context.Context, arn string) error {
	_, err := p.ELB.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{LoadBalancerArn: aws.String(arn)})
	if err != nil {
		if isAPIErrorCode(err, codeLBNotFound) {
			return nil
		}
		return err
	}

	waiter := elbv2.NewLoadBalancersDeletedWaiter(p.ELB)
	return waiter.Wait(ctx, &elbv2.DescribeLoadBalancersInput{
		LoadBalancerArns: []string{arn},
	}, 5*time.Minute)
}
