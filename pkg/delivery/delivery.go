// Package delivery posts finished reports to the downstream webhook. One
// POST per report, no retries; the webhook receiver is idempotent per
// (reportType, as_of) and the operator reruns on failure.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/reports"
)

// maxErrorBody bounds how much of a failure response is kept for the error.
const maxErrorBody = 2048

// payload is the webhook request body.
type payload struct {
	ReportType    string           `json:"reportType"`
	ReportSummary summary          `json:"reportSummary"`
	ReportData    []map[string]any `json:"reportData"`
}

// summary gives the receiver enough context to sanity-check the data block.
type summary struct {
	AsOf        string                    `json:"asOf"`
	Rows        int                       `json:"rows"`
	Diagnostics map[string]map[string]int `json:"diagnostics,omitempty"`
}

// Client delivers reports to a single webhook URL.
type Client struct {
	url    string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Client) {
		d.client = c
	}
}

// New creates a webhook client for the given URL.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.NewConfigError("delivery", "webhook URL must not be empty", nil)
	}
	d := &Client{
		url:    url,
		client: &http.Client{Timeout: constants.WebhookTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Deliver posts one report. Any non-2xx response is a DeliveryError; the
// report files already written stay on disk either way.
func (d *Client) Deliver(ctx context.Context, report *reports.Report) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(buildPayload(report))
	if err != nil {
		return errors.NewDeliveryError(d.url, 0, "encoding payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return errors.NewDeliveryError(d.url, 0, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.NewDeliveryError(d.url, 0, "posting report", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.NewDeliveryError(d.url, resp.StatusCode, string(bytes.TrimSpace(snippet)), nil)
	}

	log.Info().
		Str("report", string(report.Type)).
		Int("rows", len(report.Rows)).
		Int("status", resp.StatusCode).
		Msg("Delivered report to webhook")
	return nil
}

// buildPayload assembles the request body for one report.
func buildPayload(report *reports.Report) payload {
	p := payload{
		ReportType: string(report.Type),
		ReportSummary: summary{
			AsOf: report.AsOf.Format(constants.DateFormat),
			Rows: len(report.Rows),
		},
		ReportData: report.Records(),
	}
	if report.Diagnostics != nil && !report.Diagnostics.Empty() {
		p.ReportSummary.Diagnostics = report.Diagnostics.Summary()
	}
	return p
}

// String describes the client for logs.
func (d *Client) String() string {
	return fmt.Sprintf("webhook(%s)", d.url)
}
