package aws

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

type fakeLogsClient struct {
	pages  []*cloudwatchlogs.FilterLogEventsOutput
	calls  []cloudwatchlogs.FilterLogEventsInput
	cancel context.CancelFunc
}

func (f *fakeLogsClient) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.calls = append(f.calls, *in)
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	} else {
		// Last page: end the tail instead of sleeping into the next poll.
		f.cancel()
	}
	return page, nil
}

func logEvent(ts int64, msg string) logstypes.FilteredLogEvent {
	return logstypes.FilteredLogEvent{Timestamp: aws.Int64(ts), Message: aws.String(msg)}
}

// A paginated burst must reuse the StartTime that produced the token;
// advancing it only applies to the poll after pagination completes.
func TestTailLogsKeepsStartTimeStableAcrossPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeLogsClient{
		cancel: cancel,
		pages: []*cloudwatchlogs.FilterLogEventsOutput{
			{
				Events:    []logstypes.FilteredLogEvent{logEvent(1000, "one"), logEvent(2000, "two")},
				NextToken: aws.String("page-2"),
			},
			{
				Events: []logstypes.FilteredLogEvent{logEvent(3000, "three")},
			},
		},
	}

	var out strings.Builder
	if err := tailLogs(ctx, f, &out, 500); err != nil {
		t.Fatalf("tailLogs: %v", err)
	}

	if len(f.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(f.calls))
	}
	if got := aws.ToInt64(f.calls[0].StartTime); got != 500 {
		t.Errorf("first call StartTime = %d, want 500", got)
	}
	if f.calls[0].NextToken != nil {
		t.Error("first call must carry no token")
	}
	if got := aws.ToInt64(f.calls[1].StartTime); got != 500 {
		t.Errorf("second call StartTime = %d, want 500 (unchanged while token in flight)", got)
	}
	if aws.ToString(f.calls[1].NextToken) != "page-2" {
		t.Errorf("second call token = %q", aws.ToString(f.calls[1].NextToken))
	}

	for _, msg := range []string{"one", "two", "three"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing event %q", msg)
		}
	}
}

func TestTailLogsAdvancesStartAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restore := logPollInterval
	logPollInterval = time.Millisecond
	defer func() { logPollInterval = restore }()

	f := &fakeLogsClient{
		cancel: cancel,
		pages: []*cloudwatchlogs.FilterLogEventsOutput{
			{Events: []logstypes.FilteredLogEvent{logEvent(7000, "old")}},
			{},
		},
	}

	var out strings.Builder
	if err := tailLogs(ctx, f, &out, 500); err != nil {
		t.Fatalf("tailLogs: %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(f.calls))
	}
	if got := aws.ToInt64(f.calls[1].StartTime); got != 7001 {
		t.Errorf("poll after burst StartTime = %d, want 7001 (last event + 1)", got)
	}
}
