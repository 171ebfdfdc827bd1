package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

const (
	defaultPublishedRetentionDays = 30
	defaultParkedRetentionDays    = 90
	defaultMaxAttempts            = 10
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// PublishedDays and ParkedDays fall back to 30 and 90.
	PublishedDays int
	ParkedDays    int
	// MaxAttempts must match the publisher so only parked rows are removed.
	MaxAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteParkedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	db            txRunner
	repo          outboxRetentionRepo
	publishedDays int
	parkedDays    int
	maxAttempts   int
	now           func() time.Time
}

// NewOutboxRetentionJob prunes delivered outbox rows and rows the publisher
// gave up on.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		publishedDays: orDefault(params.PublishedDays, defaultPublishedRetentionDays),
		parkedDays:    orDefault(params.ParkedDays, defaultParkedRetentionDays),
		maxAttempts:   orDefault(params.MaxAttempts, defaultMaxAttempts),
		now:           time.Now,
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	publishedCutoff := now.AddDate(0, 0, -j.publishedDays)
	parkedCutoff := now.AddDate(0, 0, -j.parkedDays)

	var published, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.repo.DeletePublishedBefore(ctx, tx, publishedCutoff); err != nil {
			return fmt.Errorf("delete published: %w", err)
		}
		if parked, err = j.repo.DeleteParkedBefore(ctx, tx, parkedCutoff, j.maxAttempts); err != nil {
			return fmt.Errorf("delete parked: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"published_cutoff": publishedCutoff,
		"parked_cutoff":    parkedCutoff,
		"published_rows":   published,
		"parked_rows":      parked,
	}), "outbox retention cleanup complete")
	return nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
