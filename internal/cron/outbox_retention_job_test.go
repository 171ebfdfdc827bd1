package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRetentionRepo struct {
	publishedCutoff time.Time
	parkedCutoff    time.Time
	maxAttempts     int
	parkedCalls     int
	err             error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.publishedCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 12, nil
}

func (f *fakeRetentionRepo) DeleteParkedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error) {
	f.parkedCalls++
	f.parkedCutoff = cutoff
	f.maxAttempts = maxAttempts
	return 3, nil
}

type inlineTx struct{}

func (inlineTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

func newRetentionJob(t *testing.T, repo *fakeRetentionRepo, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = testLogger()
	params.DB = inlineTx{}
	params.Repository = repo
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 31, 4, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{}
	job := newRetentionJob(t, repo, OutboxRetentionJobParams{})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.Equal(t, time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC), repo.publishedCutoff)
	assert.Equal(t, time.Date(2025, 12, 31, 4, 0, 0, 0, time.UTC), repo.parkedCutoff)
	assert.Equal(t, defaultMaxAttempts, repo.maxAttempts)
}

func TestOutboxRetentionUsesConfiguredWindows(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{}
	job := newRetentionJob(t, repo, OutboxRetentionJobParams{PublishedDays: 7, ParkedDays: 14, MaxAttempts: 4})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.AddDate(0, 0, -7), repo.publishedCutoff)
	assert.Equal(t, now.AddDate(0, 0, -14), repo.parkedCutoff)
	assert.Equal(t, 4, repo.maxAttempts)
}

func TestOutboxRetentionStopsOnError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("boom")}
	job := newRetentionJob(t, repo, OutboxRetentionJobParams{})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete published")
	assert.Zero(t, repo.parkedCalls)
}

func TestNewOutboxRetentionJobValidates(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{})
	assert.EqualError(t, err, "logger required")
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger()})
	assert.EqualError(t, err, "db runner required")
}
