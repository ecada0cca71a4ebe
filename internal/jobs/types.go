package jobs

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

const (
	TaskArchiveCapture = "archive:capture"
	TaskCensusPrefetch = "census:prefetch"

	QueueCapture = "capture"
	QueueDefault = "default"
)

// ArchiveCapturePayload asks the worker to capture URL in the Wayback
// Machine and, with Wait, confirm the snapshot after DelaySeconds.
type ArchiveCapturePayload struct {
	URL          string `json:"url"`
	Wait         bool   `json:"wait,omitempty"`
	DelaySeconds int    `json:"delay_seconds,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

func (p ArchiveCapturePayload) delay() time.Duration {
	return time.Duration(p.DelaySeconds) * time.Second
}

// CensusPrefetchPayload runs one census operation so its table lands in
// the cache before anyone asks for it.
type CensusPrefetchPayload struct {
	Op        string            `json:"op"`
	Args      map[string]string `json:"args,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func NewArchiveCaptureTask(p ArchiveCapturePayload) (*asynq.Task, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("%s: url is required", TaskArchiveCapture)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", TaskArchiveCapture, err)
	}
	return asynq.NewTask(TaskArchiveCapture, payload, asynq.Queue(QueueCapture), asynq.MaxRetry(5)), nil
}

func NewCensusPrefetchTask(p CensusPrefetchPayload) (*asynq.Task, error) {
	if p.Op == "" {
		return nil, fmt.Errorf("%s: op is required", TaskCensusPrefetch)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", TaskCensusPrefetch, err)
	}
	return asynq.NewTask(TaskCensusPrefetch, payload, asynq.Queue(QueueDefault)), nil
}
