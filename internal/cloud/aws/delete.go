package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
)

// Teardown removes service, cluster, log group, load balancer, target
// groups, security groups, and the Elastic IP, in that order. Every step is
// best-effort: a failure is reported and the next step still runs. The
// Elastic IP goes last so a re-deploy keeps the same address for as long as
// possible. Returns the number of failed steps; re-running delete retries.
func (p *Provider) Teardown(ctx context.Context) int {
	failures := 0
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			failures++
			fmt.Printf("⚠️  %s: %v\n", name, err)
			return
		}
		fmt.Printf("🗑️  %s\n", name)
	}

	step("scaled service to 0", func() error {
		err := p.SetDesiredCount(ctx, 0)
		if isAPIErrorCode(err, codeClusterNotFound, codeServiceNotFound) {
			return nil
		}
		return err
	})

	step("deleted service "+naming.Service, func() error {
		_, err := p.ECS.DeleteService(ctx, &ecs.DeleteServiceInput{
			Cluster: aws.String(naming.Cluster),
			Service: aws.String(naming.Service),
			Force:   aws.Bool(true),
		})
		if isAPIErrorCode(err, codeClusterNotFound, codeServiceNotFound) {
			return nil
		}
		return err
	})

	step("deleted cluster "+naming.Cluster, func() error {
		_, err := p.ECS.DeleteCluster(ctx, &ecs.DeleteClusterInput{
			Cluster: aws.String(naming.Cluster),
		})
		if isAPIErrorCode(err, codeClusterNotFound) {
			return nil
		}
		return err
	})

	step("deleted log group "+naming.LogGroup, func() error {
		_, err := p.Logs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
			LogGroupName: aws.String(naming.LogGroup),
		})
		if isAPIErrorCode(err, codeLogsNotFound) {
			return nil
		}
		return err
	})

	step("deleted load balancer "+naming.LoadBalancer, func() error {
		arn, err := p.FindLoadBalancer(ctx)
		if err != nil {
			return err
		}
		if arn == "" {
			return nil
		}
		// Blocks until gone; target groups and security groups are still
		// attached until then.
		return p.DeleteLoadBalancer(ctx, arn)
	})

	for _, port := range naming.GatewayPorts() {
		name := naming.TargetGroup(port)
		step("deleted target group "+name, func() error {
			return p.deleteTargetGroup(ctx, name)
		})
	}

	// Fargate group first: it references the NLB group, which cannot be
	// deleted while referenced.
	for _, sg := range []string{naming.FargateSecurityGroup, naming.NLBSecurityGroup} {
		name := sg
		step("deleted security group "+name, func() error {
			return p.deleteSecurityGroup(ctx, name)
		})
	}

	step("released Elastic IP", func() error {
		eip, err := p.FindElasticIP(ctx)
		if err != nil {
			return err
		}
		if eip == nil {
			return nil
		}
		_, err = p.EC2.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{
			AllocationId: aws.String(eip.AllocationID),
		})
		if isAPIErrorCode(err, codeAllocNotFound) {
			return nil
		}
		return err
	})

	return failures
}

func (p *Provider) deleteTargetGroup(ctx context.Context, name string) error {
	out, err := p.ELB.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err != nil {
		if isAPIErrorCode(err, codeTGNotFound) {
			return nil
		}
		return err
	}
	if len(out.TargetGroups) == 0 {
		return nil
	}
	_, err = p.ELB.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
		TargetGroupArn: out.TargetGroups[0].TargetGroupArn,
	})
	if isAPIErrorCode(err, codeTGNotFound) {
		return nil
	}
	return err
}

func (p *Provider) deleteSecurityGroup(ctx context.Context, name string) error {
	out, err := p.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}},
	})
	if err != nil {
		return err
	}
	if len(out.SecurityGroups) == 0 {
		return nil
	}
	_, err = p.EC2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: out.SecurityGroups[0].GroupId,
	})
	if isAPIErrorCode(err, codeSGNotFound) {
		return nil
	}
	return err
}
