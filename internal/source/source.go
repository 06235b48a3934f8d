// Package source loads the read-only project schedule from a file, a
// directory of per-project files or an HTTP endpoint.
package source

import (
	"context"
	"errors"
	"log"

	"github.com/theirongolddev/feaso/internal/model"
)

// ScheduleSource supplies the schedule tasks of a project.
type ScheduleSource interface {
	LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error)
}

var (
	// ErrUnauthorized indicates the schedule token is missing or rejected.
	ErrUnauthorized = errors.New("schedule: unauthorized")
	// ErrNotFound indicates the project has no schedule at the source.
	ErrNotFound = errors.New("schedule: not found")
	// ErrRateLimited indicates the schedule API rate limit was hit.
	ErrRateLimited = errors.New("schedule: rate limited")
)

// None is a source with an empty schedule.
type None struct{}

// LoadSchedule returns no tasks.
func (None) LoadSchedule(context.Context, string) ([]model.ScheduleTask, error) {
	return nil, nil
}

// ScheduleCache keeps the last schedule fetched for a project.
type ScheduleCache interface {
	SaveSchedule(ctx context.Context, projectID string, tasks []model.ScheduleTask) error
	LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error)
}

// Cached wraps a source with a cache. A successful load refreshes the
// cache; a failed load falls back to the cached copy when there is one.
type Cached struct {
	Source ScheduleSource
	Cache  ScheduleCache
}

// LoadSchedule implements ScheduleSource.
func (c Cached) LoadSchedule(ctx context.Context, projectID string) ([]model.ScheduleTask, error) {
	tasks, err := c.Source.LoadSchedule(ctx, projectID)
	if err == nil {
		if serr := c.Cache.SaveSchedule(ctx, projectID, tasks); serr != nil {
			log.Printf("feaso: caching schedule: %v", serr)
		}
		return tasks, nil
	}

	cached, cerr := c.Cache.LoadSchedule(ctx, projectID)
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}
	log.Printf("feaso: schedule source failed (%v); using cached schedule", err)
	return cached, nil
}
