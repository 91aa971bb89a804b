package internal

import (
	"context"
	"net/http"
)

type ScheduleSource interface {
	// Descriptor returns the source descriptor (used in logs).
	Descriptor() string
	ScrapeSchedules(ctx context.Context, req ListSchedulesRequest) (<-chan SchedulePage, error)
}

// GoldenSource extends ScheduleSource with the ability to pull and serve golden test data.
type GoldenSource interface {
	ScheduleSource
	PullGolden(ctx context.Context, goldenDir string) error
	MountGolden(ctx context.Context, goldenDir string) (http.Handler, error)
}
