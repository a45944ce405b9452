package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	provider "github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/aws"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/taskdef"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/utils"
)

const (
	stabilizeTimeout = 10 * time.Minute
	probeTimeout     = 5 * time.Second
)

// newProvider builds the AWS provider from the global flags.
func newProvider(c *cli.Context) (*provider.Provider, error) {
	opts := []provider.ProviderOption{}
	if p := c.String("profile"); p != "" {
		opts = append(opts, provider.WithProfile(p))
	}
	if r := c.String("region"); r != "" {
		opts = append(opts, provider.WithRegion(r))
	}
	return provider.NewProvider(c.Context, opts...)
}

func deployCommand(c *cli.Context) error {
	ctx := c.Context

	settings, err := models.LoadSettings(c.String("settings"))
	if err != nil {
		return err
	}

	p, err := newProvider(c)
	if err != nil {
		return err
	}
	account, err := p.ValidateCredentials(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✅ AWS credentials OK (account %s, region %s)\n", account, p.Region())

	vpcID, err := p.DefaultVPC(ctx)
	if err != nil {
		return err
	}
	subnets, err := p.PublicSubnets(ctx, vpcID)
	if err != nil {
		return err
	}
	fmt.Printf("🌐 Using VPC %s with %d public subnets\n", vpcID, len(subnets))

	eip, err := p.EnsureElasticIP(ctx)
	if err != nil {
		return err
	}

	nlbSG, err := p.EnsureSecurityGroup(ctx, naming.NLBSecurityGroup, "ib-gateway NLB ingress (operator allow-list)", vpcID)
	if err != nil {
		return err
	}
	operatorIP, err := utils.PublicIP(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Printf("🔒 Restricting access to your current IP: %s\n", operatorIP)
	for _, port := range naming.GatewayPorts() {
		if err := p.AuthorizeCIDR(ctx, nlbSG, port, operatorIP+"/32", "operator access"); err != nil {
			return err
		}
	}

	fargateSG, err := p.EnsureSecurityGroup(ctx, naming.FargateSecurityGroup, "ib-gateway Fargate ingress (NLB only)", vpcID)
	if err != nil {
		return err
	}
	// Chained ingress: the compute group only accepts traffic whose source
	// is the NLB group, never a raw CIDR.
	for _, port := range naming.GatewayPorts() {
		if err := p.AuthorizeFromGroup(ctx, fargateSG, port, nlbSG); err != nil {
			return err
		}
	}

	lbArn, err := p.EnsureLoadBalancer(ctx, subnets[0], eip.AllocationID, nlbSG)
	if err != nil {
		return err
	}

	bindings := make([]provider.TargetBinding, 0, 2)
	for _, port := range naming.GatewayPorts() {
		tgArn, err := p.EnsureTargetGroup(ctx, vpcID, port)
		if err != nil {
			return err
		}
		if err := p.EnsureListener(ctx, lbArn, tgArn, port); err != nil {
			return err
		}
		bindings = append(bindings, provider.TargetBinding{TargetGroupArn: tgArn, Port: port})
	}

	if err := p.EnsureLogGroup(ctx); err != nil {
		return err
	}
	if _, err := p.EnsureCluster(ctx); err != nil {
		return err
	}

	def := taskdef.Render(settings, taskdef.Options{
		ExecutionRoleArn: provider.ExecutionRoleArn(account),
		Region:           p.Region(),
	})
	artifact, err := def.WriteArtifact(".")
	if err != nil {
		return err
	}
	fmt.Printf("📝 Task definition written to %s\n", artifact)

	taskDefArn, err := p.RegisterTaskDefinition(ctx, def)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Registered task definition: %s\n", taskDefArn)

	if err := p.EnsureService(ctx, provider.ServiceParams{
		TaskDefinitionArn: taskDefArn,
		Subnets:           subnets,
		SecurityGroupID:   fargateSG,
		Bindings:          bindings,
	}); err != nil {
		return err
	}

	loader := models.NewLoader(os.Stdout, "Waiting for the gateway service to stabilize (can take a few minutes)...")
	loader.Start()
	err = p.WaitServiceStable(ctx, stabilizeTimeout)
	if err != nil {
		loader.StopWithMessage("⚠️  Service did not stabilize in time; check 'ibgw logs'")
		return err
	}
	loader.StopWithMessage("✅ Service is stable")

	fmt.Println("\n🎉 Deployment complete. Gateway endpoints:")
	for _, ep := range naming.Endpoints(eip.PublicIP) {
		fmt.Printf("   • %s\n", ep)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	p, err := newProvider(c)
	if err != nil {
		return err
	}
	status, err := p.ServiceStatus(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("📊 Service %s: %s\n", naming.Service, status.Status)
	fmt.Printf("   desired=%d running=%d pending=%d\n", status.DesiredCount, status.RunningCount, status.PendingCount)
	fmt.Printf("   task definition: %s\n", status.TaskDef)
	if len(status.Events) > 0 {
		fmt.Println("   recent events:")
		for _, ev := range status.Events {
			fmt.Printf("   • %s\n", ev)
		}
	}
	return nil
}

func ipCommand(c *cli.Context) error {
	p, err := newProvider(c)
	if err != nil {
		return err
	}
	eip, err := p.FindElasticIP(c.Context)
	if err != nil {
		return err
	}
	if eip == nil {
		return fmt.Errorf("no Elastic IP tagged %s found; run deploy first", naming.ElasticIPTag)
	}

	fmt.Printf("🌐 Elastic IP: %s\n", eip.PublicIP)
	for _, ep := range naming.Endpoints(eip.PublicIP) {
		fmt.Printf("   • %s\n", ep)
	}
	return nil
}

func logsCommand(c *cli.Context) error {
	ctx := c.Context
	p, err := newProvider(c)
	if err != nil {
		return err
	}

	count, err := p.CountLogStreams(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("ℹ️  No log streams yet; running diagnostics instead.")
		return runDiagnostics(ctx, p)
	}

	fmt.Printf("📜 Tailing %s (Ctrl-C to stop)\n", naming.LogGroup)
	return p.TailLogs(ctx, os.Stdout)
}

func runDiagnostics(ctx context.Context, p *provider.Provider) error {
	report, err := p.Diagnose(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("🔍 Task status: %s\n", report.TaskStatus)
	if report.StoppedReason != "" {
		fmt.Printf("   stopped reason: %s\n", report.StoppedReason)
	}
	for _, ctr := range report.Containers {
		line := fmt.Sprintf("   container %s: %s", ctr.Name, ctr.Status)
		if ctr.ExitCode != nil {
			line += fmt.Sprintf(" (exit code %d)", *ctr.ExitCode)
		}
		if ctr.Reason != "" {
			line += " — " + ctr.Reason
		}
		fmt.Println(line)
	}

	eip, err := p.FindElasticIP(ctx)
	if err != nil || eip == nil {
		fmt.Println("ℹ️  No Elastic IP found; skipping connectivity probes.")
		return nil
	}
	fmt.Println("🔌 Probing gateway endpoints:")
	report.Probes = probeEndpoints(ctx, eip.PublicIP)
	for _, res := range report.Probes {
		fmt.Printf("   %s\n", res)
	}
	return nil
}

// probeEndpoints checks both gateway ports on the given address directly,
// bypassing DNS and the load balancer's health checks.
func probeEndpoints(ctx context.Context, ip string) []models.ProbeResult {
	results := make([]models.ProbeResult, 0, 2)
	for _, ep := range naming.Endpoints(ip) {
		results = append(results, utils.ProbeTCP(ctx, ep, probeTimeout))
	}
	return results
}

func restartCommand(c *cli.Context) error {
	p, err := newProvider(c)
	if err != nil {
		return err
	}
	if err := p.ForceNewDeployment(c.Context); err != nil {
		return err
	}
	fmt.Println("🔄 Forced a new deployment; the gateway is restarting.")
	return nil
}

func stopCommand(c *cli.Context) error {
	p, err := newProvider(c)
	if err != nil {
		return err
	}
	if err := p.SetDesiredCount(c.Context, 0); err != nil {
		return err
	}
	fmt.Println("⏹️  Desired count set to 0; the gateway is stopping.")
	return nil
}

func startCommand(c *cli.Context) error {
	p, err := newProvider(c)
	if err != nil {
		return err
	}
	if err := p.SetDesiredCount(c.Context, 1); err != nil {
		return err
	}
	fmt.Println("▶️  Desired count set to 1; the gateway is starting.")
	return nil
}

func updateIPCommand(c *cli.Context) error {
	ctx := c.Context
	p, err := newProvider(c)
	if err != nil {
		return err
	}

	ip, err := utils.PublicIP(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Printf("🌐 Your current public IP: %s\n", ip)

	sgID, err := p.FindSecurityGroup(ctx, naming.NLBSecurityGroup)
	if err != nil {
		return err
	}
	return p.RotateIngress(ctx, sgID, ip)
}

func updateCommand(c *cli.Context) error {
	ctx := c.Context

	settings, err := models.LoadSettings(c.String("settings"))
	if err != nil {
		return err
	}

	p, err := newProvider(c)
	if err != nil {
		return err
	}
	account, err := p.ValidateCredentials(ctx)
	if err != nil {
		return err
	}

	def := taskdef.Render(settings, taskdef.Options{
		Verbose:          c.Bool("verbose"),
		ExecutionRoleArn: provider.ExecutionRoleArn(account),
		Region:           p.Region(),
	})

	if c.Bool("dry-run") {
		// Print exactly what WriteArtifact would write and what ECS receives.
		data, err := def.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	artifact, err := def.WriteArtifact(".")
	if err != nil {
		return err
	}
	fmt.Printf("📝 Task definition written to %s\n", artifact)

	taskDefArn, err := p.RegisterTaskDefinition(ctx, def)
	if err != nil {
		return err
	}
	if err := p.UpdateServiceTaskDefinition(ctx, taskDefArn); err != nil {
		return err
	}
	fmt.Printf("✅ Service moved to %s\n", taskDefArn)
	return nil
}

// teardownConfirmed is the delete gate: anything but an explicit yes leaves
// every resource untouched.
func teardownConfirmed(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}

func deleteCommand(c *cli.Context) error {
	ctx := c.Context

	if !c.Bool("force") {
		fmt.Println("⚠️  This will delete the gateway service, cluster, load balancer,")
		fmt.Println("    target groups, security groups, log group, and release the Elastic IP.")

		var answer string
		prompt := &survey.Input{
			Message: "Type 'yes' to delete everything:",
		}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return err
		}
		if !teardownConfirmed(answer) {
			fmt.Println("\nDeletion cancelled; nothing was touched.")
			return nil
		}
	}

	p, err := newProvider(c)
	if err != nil {
		return err
	}

	fmt.Println("🧹 Tearing down ib-gateway resources (the load balancer wait can take a minute)...")
	failures := p.Teardown(ctx)

	if err := taskdef.RemoveArtifact("."); err != nil {
		fmt.Printf("⚠️  could not remove task definition artifact: %v\n", err)
	}

	if failures > 0 {
		fmt.Printf("⚠️  Teardown finished with %d failed steps; re-run delete to retry.\n", failures)
		return nil
	}
	fmt.Println("✅ All resources removed.")
	return nil
}
