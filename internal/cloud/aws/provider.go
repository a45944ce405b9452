// Package aws provisions and manages the ib-gateway stack: Elastic IP,
// chained security groups, network load balancer, ECS Fargate service, and
// the CloudWatch log group. Every creation step is a find-or-create keyed by
// the fixed names in the naming package; the AWS account is the system of
// record and nothing is persisted locally.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// Provider holds the AWS clients shared by every command.
type Provider struct {
	region string
	cfg    aws.Config

	EC2  *ec2.Client
	ECS  *ecs.Client
	ELB  *elbv2.Client
	Logs *cloudwatchlogs.Client
	STS  *sts.Client
}

// ProviderOption is a functional option for provider configuration
type ProviderOption func(*providerOptions)

type providerOptions struct {
	profile string
	region  string
}

// WithRegion specifies the AWS region
func WithRegion(region string) ProviderOption {
	return func(o *providerOptions) {
		o.region = region
	}
}

// WithProfile specifies the AWS profile to use
func WithProfile(profile string) ProviderOption {
	return func(o *providerOptions) {
		o.profile = profile
	}
}

// loadAWSConfig loads AWS configuration with optional profile
func loadAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{}
	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, &models.ProviderError{
			Provider:  "aws",
			Operation: "load-config",
			Resource:  fmt.Sprintf("profile:%s", profile),
			Cause:     fmt.Errorf("failed to load AWS config: %w", err),
		}
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg, nil
}

// NewProvider creates a provider with clients for every service the
// provisioner touches.
func NewProvider(ctx context.Context, options ...ProviderOption) (*Provider, error) {
	opts := &providerOptions{}
	for _, opt := range options {
		opt(opts)
	}

	cfg, err := loadAWSConfig(ctx, opts.profile)
	if err != nil {
		return nil, err
	}
	if opts.region != "" {
		cfg.Region = opts.region
	}

	return &Provider{
		region: cfg.Region,
		cfg:    cfg,
		EC2:    ec2.NewFromConfig(cfg),
		ECS:    ecs.NewFromConfig(cfg),
		ELB:    elbv2.NewFromConfig(cfg),
		Logs:   cloudwatchlogs.NewFromConfig(cfg),
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// Region returns the resolved AWS region.
func (p *Provider) Region() string {
	return p.region
}

// ValidateCredentials checks the configured credentials and returns the
// account ID, which is also used to build the task execution role ARN.
func (p *Provider) ValidateCredentials(ctx context.Context) (string, error) {
	out, err := p.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", &models.ProviderError{
			Provider:  "aws",
			Operation: "validate-credentials",
			Resource:  "sts:GetCallerIdentity",
			Cause:     err,
		}
	}
	return aws.ToString(out.Account), nil
}

// ExecutionRoleArn returns the standard ECS task execution role in the
// caller's account. The role must exist; it is created automatically the
// first time the ECS console is used, or via iam create-role.
func ExecutionRoleArn(account string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/ecsTaskExecutionRole", account)
}
