package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// rotationPlan is the outcome of planning an operator-IP rotation on the NLB
// security group: which CIDR rules to revoke and which to authorize. Revoke
// and authorize are two separate API calls with no atomicity between them.
type rotationPlan struct {
	revoke    []ec2types.IpPermission
	authorize []ec2types.IpPermission
}

// planRotation computes the rotation for a new operator CIDR: every
// previously authorized non-wildcard CIDR on the gateway ports goes, the new
// /32 comes in on both ports. A rule whose port range merely spans a gateway
// port counts too; revocation keeps the rule's own range so the API matches
// it. Ports already carrying the new CIDR are left alone. Pure function; the
// SG state comes from DescribeSecurityGroups.
func planRotation(perms []ec2types.IpPermission, newCIDR string, ports []int32) rotationPlan {
	var plan rotationPlan

	portSet := make(map[int32]bool, len(ports))
	for _, p := range ports {
		portSet[p] = false // false = not yet authorized for newCIDR
	}

	for _, perm := range perms {
		if aws.ToString(perm.IpProtocol) != "tcp" {
			continue
		}
		from, to := aws.ToInt32(perm.FromPort), aws.ToInt32(perm.ToPort)
		var covered []int32
		for _, p := range ports {
			if from <= p && p <= to {
				covered = append(covered, p)
			}
		}
		if len(covered) == 0 {
			continue
		}
		// The new CIDR only counts as authorized on a port when the rule is
		// exactly that port; a spanning rule is stale either way.
		exact := from == to

		var stale []ec2types.IpRange
		for _, r := range perm.IpRanges {
			cidr := aws.ToString(r.CidrIp)
			switch cidr {
			case "0.0.0.0/0":
				// Wildcard rules are left untouched.
			case newCIDR:
				if exact {
					portSet[from] = true
					continue
				}
				stale = append(stale, ec2types.IpRange{CidrIp: r.CidrIp})
			default:
				stale = append(stale, ec2types.IpRange{CidrIp: r.CidrIp})
			}
		}
		if len(stale) > 0 {
			plan.revoke = append(plan.revoke, ec2types.IpPermission{
				IpProtocol: aws.String("tcp"),
				FromPort:   aws.Int32(from),
				ToPort:     aws.Int32(to),
				IpRanges:   stale,
			})
		}
	}

	for _, port := range ports {
		if portSet[port] {
			continue
		}
		plan.authorize = append(plan.authorize, ec2types.IpPermission{
			IpProtocol: aws.String("tcp"),
			FromPort:   aws.Int32(port),
			ToPort:     aws.Int32(port),
			IpRanges: []ec2types.IpRange{{
				CidrIp:      aws.String(newCIDR),
				Description: aws.String("operator access"),
			}},
		})
	}

	return plan
}

// RotateIngress replaces the operator allow-list on the NLB security group
// with ip/32 on both gateway ports.
func (p *Provider) RotateIngress(ctx context.Context, groupID, ip string) error {
	out, err := p.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		return &models.ProviderError{Provider: "aws", Operation: "update-ip", Resource: groupID, Cause: err}
	}
	if len(out.SecurityGroups) == 0 {
		return &models.ProviderError{Provider: "aws", Operation: "update-ip", Resource: groupID,
			Cause: fmt.Errorf("security group not found")}
	}

	plan := planRotation(out.SecurityGroups[0].IpPermissions, ip+"/32", naming.GatewayPorts())

	for _, perm := range plan.revoke {
		_, err := p.EC2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: []ec2types.IpPermission{perm},
		})
		if err != nil && !isAPIErrorCode(err, codePermNotFound) {
			return &models.ProviderError{Provider: "aws", Operation: "update-ip", Resource: groupID, Cause: err}
		}
		for _, r := range perm.IpRanges {
			fmt.Printf("🗑️  Revoked %s on port %d\n", aws.ToString(r.CidrIp), aws.ToInt32(perm.FromPort))
		}
	}

	for _, perm := range plan.authorize {
		_, err := p.EC2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: []ec2types.IpPermission{perm},
		})
		if err != nil && !isAPIErrorCode(err, codePermDuplicate) {
			return &models.ProviderError{Provider: "aws", Operation: "update-ip", Resource: groupID, Cause: err}
		}
		fmt.Printf("✅ Authorized %s/32 on port %d\n", ip, aws.ToInt32(perm.FromPort))
	}

	if len(plan.revoke) == 0 && len(plan.authorize) == 0 {
		fmt.Println("ℹ️  Ingress rules already match your current IP; nothing to rotate.")
	}
	return nil
}
