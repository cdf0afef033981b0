package goals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/tracker/internal/metrics"
)

// Job fetches the goals and publishes them. Nothing is written unless every
// step succeeds, so a failed run leaves the published file untouched.
type Job struct {
	client *Client
	creds  Credentials
	output string
	now    func() time.Time
}

// NewJob creates a job writing to output.
func NewJob(client *Client, creds Credentials, output string) *Job {
	return &Job{client: client, creds: creds, output: output, now: time.Now}
}

// Run performs one fetch and publication.
func (j *Job) Run(ctx context.Context) error {
	if err := j.run(ctx); err != nil {
		metrics.GoalsJobRunsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.GoalsJobRunsTotal.WithLabelValues("success").Inc()
	metrics.GoalsLastSuccess.SetToCurrentTime()
	return nil
}

func (j *Job) run(ctx context.Context) error {
	raw, err := j.client.Fetch(ctx, j.creds)
	if err != nil {
		return fmt.Errorf("fetching goals: %w", err)
	}

	payload := BuildPayload(raw, j.client.APIURL(), j.now())
	if err := Publish(j.output, payload); err != nil {
		return fmt.Errorf("publishing goals: %w", err)
	}
	slog.Info("goals published", "path", j.output)

	if attrs, ok := ReadAttributes(payload); ok {
		slog.Info("first goal",
			"nav", FormatCLP(attrs.NAV),
			"deposited", FormatCLP(attrs.Deposited),
			"profit", FormatCLP(attrs.Profit),
			"fetched_at", payload["fetched_at"])
	}
	return nil
}
