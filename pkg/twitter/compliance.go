package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/client"
	"github.com/Sternrassler/twitterapi-client/pkg/logging"
	"github.com/Sternrassler/twitterapi-client/pkg/pagination"
)

// CreateComplianceJob creates a batch compliance job. Upload the ids to the
// returned job's UploadURL before it expires.
func (a *API) CreateComplianceJob(ctx context.Context, kind ComplianceJobType, name string, resumable bool) (*ComplianceJob, error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}

	body := map[string]any{"type": kind, "resumable": resumable}
	if name != "" {
		body["name"] = name
	}

	exec := a.client.NewExecutor("compliance_jobs", a.lookup(), a.opts.Policy)
	out, err := exec.Do(ctx, client.Request{
		Method:   http.MethodPost,
		Path:     "compliance/jobs",
		JSONBody: body,
	})
	if err != nil {
		return nil, fmt.Errorf("create compliance job: %w", err)
	}

	var resp struct {
		Data ComplianceJob `json:"data"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode compliance job: %w", err)
	}
	return &resp.Data, nil
}

// ComplianceJobs lists the jobs of a type, optionally filtered by status.
func (a *API) ComplianceJobs(ctx context.Context, kind ComplianceJobType, status ComplianceJobStatus) ([]ComplianceJob, error) {
	if err := kind.validate(); err != nil {
		return nil, err
	}

	q := url.Values{"type": {string(kind)}}
	set(q, "status", string(status))

	return fetchAll(ctx, a, client.Request{Path: "compliance/jobs", Query: q, Endpoint: "compliance_jobs"}, pagination.DecodeObject[ComplianceJob])
}

// ComplianceJob returns one job.
func (a *API) ComplianceJob(ctx context.Context, id string) (*ComplianceJob, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: job id is required", ErrInvalidArgument)
	}

	job, err := fetchOne(ctx, a, client.Request{Path: "compliance/jobs/" + url.PathEscape(id), Endpoint: "compliance_job"}, pagination.DecodeObject[ComplianceJob])
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitForComplianceJob polls a job every interval until it is complete, failed
// or expired, and returns its final state.
func (a *API) WaitForComplianceJob(ctx context.Context, id string, interval time.Duration) (*ComplianceJob, error) {
	logger := a.client.Logger().With().Str("endpoint", "compliance_job").Str("job_id", id).Logger()
	started := time.Now()

	for polls := 1; ; polls++ {
		job, err := a.ComplianceJob(ctx, id)
		if err != nil {
			logger.Error().Err(err).Int("polls", polls).Msg("Compliance job poll failed")
			return nil, err
		}

		switch job.Status {
		case JobComplete:
			logger.Info().
				Int("polls", polls).
				Dur("elapsed", time.Since(started)).
				Msg("Compliance job complete")
			return job, nil
		case JobFailed, JobExpired:
			logger.Warn().Str("status", string(job.Status)).Int("polls", polls).Msg("Compliance job did not complete")
			return job, fmt.Errorf("compliance job %s ended with status %s", id, job.Status)
		}

		logger.Debug().Str("status", string(job.Status)).Dur("interval", interval).Msg("Compliance job pending")
		if err := client.Sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("%w: %w", client.ErrContextCancelled, err)
		}
	}
}

// UploadIDs uploads newline-separated ids to a job's signed upload URL.
// The URL carries its own signature, so no bearer token is sent.
func (a *API) UploadIDs(ctx context.Context, uploadURL string, ids io.Reader) error {
	data, err := io.ReadAll(ids)
	if err != nil {
		return fmt.Errorf("read ids: %w", err)
	}

	exec := a.client.NewExecutor("compliance_upload", a.lookup(), a.opts.Policy)
	_, err = exec.Do(ctx, client.Request{
		Method:          http.MethodPut,
		Path:            uploadURL,
		RawBody:         data,
		ContentType:     "text/plain",
		Unauthenticated: true,
	})
	if err != nil {
		return fmt.Errorf("upload ids: %w", err)
	}
	return nil
}

// DownloadResults streams a completed job's results to w and returns the
// number of bytes written.
func (a *API) DownloadResults(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	exec := a.client.NewExecutor("compliance_download", a.lookup(), a.opts.Policy)
	resp, err := exec.Open(ctx, client.Request{
		Path:            downloadURL,
		Unauthenticated: true,
	})
	if err != nil {
		return 0, fmt.Errorf("download results: %w", err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("copy results: %w", err)
	}
	return n, nil
}

// ParseComplianceResults decodes downloaded results, one JSON object per line.
// Lines that fail to decode are returned as an error after the good ones.
func ParseComplianceResults(data []byte) ([]json.RawMessage, error) {
	var out []json.RawMessage
	var bad int
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			bad++
			continue
		}
		out = append(out, append(json.RawMessage(nil), line...))
	}
	if bad > 0 {
		logger := logging.NewLogger("twitterapi-client")
		logger.Warn().Int("bad_lines", bad).Int("good_lines", len(out)).Msg("Compliance results contain invalid lines")
		return out, fmt.Errorf("%d result lines are not valid JSON", bad)
	}
	return out, nil
}

func (k ComplianceJobType) validate() error {
	if k != ComplianceTweets && k != ComplianceUsers {
		return fmt.Errorf("%w: compliance type must be tweets or users (got %q)", ErrInvalidArgument, k)
	}
	return nil
}
