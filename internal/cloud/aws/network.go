package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// DefaultVPC returns the account's default VPC in the configured region.
func (p *Provider) DefaultVPC(ctx context.Context) (string, error) {
	out, err := p.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{Name: aws.String("isDefault"), Values: []string{"true"}}},
	})
	if err != nil {
		return "", &models.ProviderError{Provider: "aws", Operation: "deploy", Resource: "default VPC", Cause: err}
	}
	if len(out.Vpcs) == 0 {
		return "", &models.PrerequisiteError{Requirement: "a default VPC in region " + p.region}
	}
	return aws.ToString(out.Vpcs[0].VpcId), nil
}

// PublicSubnets returns the public subnets of the VPC, one per availability
// zone, sorted by zone. The network load balancer needs at least two; with
// fewer the whole deploy aborts before any LB resource is created.
func (p *Provider) PublicSubnets(ctx context.Context, vpcID string) ([]string, error) {
	out, err := p.EC2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("map-public-ip-on-launch"), Values: []string{"true"}},
		},
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: "aws", Operation: "deploy", Resource: "public subnets", Cause: err}
	}

	subnets := choosePublicSubnets(out.Subnets)
	if len(subnets) < 2 {
		return nil, &models.PrerequisiteError{
			Requirement: "at least two public subnets in distinct availability zones",
			Found:       fmt.Sprintf("%d", len(subnets)),
		}
	}
	return subnets, nil
}

// choosePublicSubnets picks one subnet per availability zone, zone-sorted so
// repeated deploys bind the Elastic IP to the same first subnet.
func choosePublicSubnets(subnets []ec2types.Subnet) []string {
	byZone := make(map[string]string)
	for _, s := range subnets {
		zone := aws.ToString(s.AvailabilityZone)
		if _, taken := byZone[zone]; !taken {
			byZone[zone] = aws.ToString(s.SubnetId)
		}
	}
	zones := make([]string, 0, len(byZone))
	for z := range byZone {
		zones = append(zones, z)
	}
	sort.Strings(zones)

	ids := make([]string, 0, len(zones))
	for _, z := range zones {
		ids = append(ids, byZone[z])
	}
	return ids
}

// EnsureSecurityGroup find-or-creates a security group by its fixed name.
func (p *Provider) EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (string, error) {
	return ensureResource(ctx, ensureSpec{
		kind: "security group",
		name: name,
		lookup: func(ctx context.Context) (string, bool, error) {
			out, err := p.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
				Filters: []ec2types.Filter{
					{Name: aws.String("group-name"), Values: []string{name}},
					{Name: aws.String("vpc-id"), Values: []string{vpcID}},
				},
			})
			if err != nil {
				return "", false, err
			}
			if len(out.SecurityGroups) == 0 {
				return "", false, nil
			}
			return aws.ToString(out.SecurityGroups[0].GroupId), true, nil
		},
		create: func(ctx context.Context) (string, error) {
			out, err := p.EC2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
				GroupName:   aws.String(name),
				Description: aws.String(description),
				VpcId:       aws.String(vpcID),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.GroupId), nil
		},
		duplicateCodes: []string{codeSGDuplicate},
	})
}

// AuthorizeCIDR allows TCP from cidr on port. An already-present rule counts
// as success.
func (p *Provider) AuthorizeCIDR(ctx context.Context, groupID string, port int32, cidr, description string) error {
	_, err := p.EC2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(port),
			ToPort:     aws.Int32(port),
			IpRanges:   []ec2types.IpRange{{CidrIp: aws.String(cidr), Description: aws.String(description)}},
		}},
	})
	if err != nil && !isAPIErrorCode(err, codePermDuplicate) {
		return &models.ProviderError{
			Provider:  "aws",
			Operation: "authorize-ingress",
			Resource:  fmt.Sprintf("%s port %d from %s", groupID, port, cidr),
			Cause:     err,
		}
	}
	return nil
}

// AuthorizeFromGroup allows TCP on port only when the traffic's source is
// another security group: the compute group never sees a raw CIDR, only the
// load balancer's group.
func (p *Provider) AuthorizeFromGroup(ctx context.Context, groupID string, port int32, sourceGroupID string) error {
	_, err := p.EC2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{{
			IpProtocol:       aws.String("tcp"),
			FromPort:         aws.Int32(port),
			ToPort:           aws.Int32(port),
			UserIdGroupPairs: []ec2types.UserIdGroupPair{{GroupId: aws.String(sourceGroupID)}},
		}},
	})
	if err != nil && !isAPIErrorCode(err, codePermDuplicate) {
		return &models.ProviderError{
			Provider:  "aws",
			Operation: "authorize-ingress",
			Resource:  fmt.Sprintf("%s port %d from group %s", groupID, port, sourceGroupID),
			Cause:     err,
		}
	}
	return nil
}

// FindSecurityGroup looks up a group by its fixed name without creating it.
func (p *Provider) FindSecurityGroup(ctx context.Context, name string) (string, error) {
	out, err := p.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}},
	})
	if err != nil {
		return "", &models.ProviderError{Provider: "aws", Operation: "lookup", Resource: name, Cause: err}
	}
	if len(out.SecurityGroups) == 0 {
		return "", &models.ProviderError{
			Provider:  "aws",
			Operation: "lookup",
			Resource:  name,
			Cause:     fmt.Errorf("security group not found; run deploy first"),
		}
	}
	return aws.ToString(out.SecurityGroups[0].GroupId), nil
}

// ElasticIP is the stable public address that survives redeploys.
type ElasticIP struct {
	AllocationID string
	PublicIP     string
}

// EnsureElasticIP find-or-creates the address tagged Name=ib-gateway-eip.
func (p *Provider) EnsureElasticIP(ctx context.Context) (*ElasticIP, error) {
	eip, err := p.FindElasticIP(ctx)
	if err != nil {
		return nil, err
	}
	if eip != nil {
		fmt.Printf("♻️  Reusing Elastic IP: %s (%s)\n", eip.PublicIP, eip.AllocationID)
		return eip, nil
	}

	out, err := p.EC2.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain: ec2types.DomainTypeVpc,
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeElasticIp,
			Tags:         []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(naming.ElasticIPTag)}},
		}},
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: "aws", Operation: "deploy", Resource: naming.ElasticIPTag, Cause: err}
	}
	eip = &ElasticIP{AllocationID: aws.ToString(out.AllocationId), PublicIP: aws.ToString(out.PublicIp)}
	fmt.Printf("✅ Allocated Elastic IP: %s (%s)\n", eip.PublicIP, eip.AllocationID)
	return eip, nil
}

// FindElasticIP looks the address up by tag; nil when absent.
func (p *Provider) FindElasticIP(ctx context.Context) (*ElasticIP, error) {
	out, err := p.EC2.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{naming.ElasticIPTag}}},
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: "aws", Operation: "lookup", Resource: naming.ElasticIPTag, Cause: err}
	}
	if len(out.Addresses) == 0 {
		return nil, nil
	}
	addr := out.Addresses[0]
	return &ElasticIP{
		AllocationID: aws.ToString(addr.AllocationId),
		PublicIP:     aws.ToString(addr.PublicIp),
	}, nil
}
