package aws

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

var logPollInterval = 3 * time.Second

// CountLogStreams returns how many streams the gateway has written. Zero
// means the container never got far enough to log, which sends the logs
// command down the diagnostic path instead of tailing nothing.
func (p *Provider) CountLogStreams(ctx context.Context) (int, error) {
	out, err := p.Logs.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(naming.LogGroup),
		OrderBy:      "LastEventTime",
		Descending:   aws.Bool(true),
		Limit:        aws.Int32(5),
	})
	if err != nil {
		if isAPIErrorCode(err, codeLogsNotFound) {
			return 0, nil
		}
		return 0, &models.ProviderError{Provider: "aws", Operation: "logs", Resource: naming.LogGroup, Cause: err}
	}
	return len(out.LogStreams), nil
}

// TailLogs streams the log group to out until ctx is cancelled (the operator
// interrupting). Events already written are printed from one hour back.
func (p *Provider) TailLogs(ctx context.Context, out io.Writer) error {
	return tailLogs(ctx, p.Logs, out, time.Now().Add(-time.Hour).UnixMilli())
}

func tailLogs(ctx context.Context, client cloudwatchlogs.FilterLogEventsAPIClient, out io.Writer, start int64) error {
	var token *string
	// FilterLogEvents tokens are only valid against the exact request that
	// produced them, so StartTime stays frozen while a token is in flight
	// and only advances between pagination bursts.
	next := start

	for {
		resp, err := client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(naming.LogGroup),
			StartTime:    aws.Int64(start),
			NextToken:    token,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &models.ProviderError{Provider: "aws", Operation: "logs", Resource: naming.LogGroup, Cause: err}
		}

		for _, ev := range resp.Events {
			ts := time.UnixMilli(aws.ToInt64(ev.Timestamp)).UTC().Format(time.RFC3339)
			fmt.Fprintf(out, "%s %s\n", ts, aws.ToString(ev.Message))
			if aws.ToInt64(ev.Timestamp) >= next {
				next = aws.ToInt64(ev.Timestamp) + 1
			}
		}

		if resp.NextToken != nil {
			token = resp.NextToken
			continue
		}
		token = nil
		start = next

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(logPollInterval):
		}
	}
}

// Diagnose inspects the most recent task (running or stopped) and explains
// what it is doing, so "no logs" has an actionable answer.
func (p *Provider) Diagnose(ctx context.Context) (*models.DiagnosticReport, error) {
	report := &models.DiagnosticReport{}

	taskArn, err := p.latestTask(ctx)
	if err != nil {
		return nil, err
	}
	if taskArn == "" {
		report.TaskStatus = "NO_TASKS"
		return report, nil
	}

	out, err := p.ECS.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(naming.Cluster),
		Tasks:   []string{taskArn},
	})
	if err != nil {
		return nil, &models.ProviderError{Provider: "aws", Operation: "diagnose", Resource: taskArn, Cause: err}
	}
	if len(out.Tasks) == 0 {
		report.TaskStatus = "NO_TASKS"
		return report, nil
	}

	task := out.Tasks[0]
	report.TaskArn = aws.ToString(task.TaskArn)
	report.TaskStatus = aws.ToString(task.LastStatus)
	report.StoppedReason = aws.ToString(task.StoppedReason)
	for _, c := range task.Containers {
		report.Containers = append(report.Containers, models.ContainerDiagnostic{
			Name:     aws.ToString(c.Name),
			Status:   aws.ToString(c.LastStatus),
			Reason:   aws.ToString(c.Reason),
			ExitCode: c.ExitCode,
		})
	}
	return report, nil
}

// latestTask prefers a running task, falling back to the most recently
// stopped one.
func (p *Provider) latestTask(ctx context.Context) (string, error) {
	for _, status := range []ecstypes.DesiredStatus{ecstypes.DesiredStatusRunning, ecstypes.DesiredStatusStopped} {
		out, err := p.ECS.ListTasks(ctx, &ecs.ListTasksInput{
			Cluster:       aws.String(naming.Cluster),
			DesiredStatus: status,
		})
		if err != nil {
			if isAPIErrorCode(err, codeClusterNotFound) {
				return "", nil
			}
			return "", &models.ProviderError{Provider: "aws", Operation: "diagnose", Resource: naming.Cluster, Cause: err}
		}
		if len(out.TaskArns) > 0 {
			return out.TaskArns[0], nil
		}
	}
	return "", nil
}
