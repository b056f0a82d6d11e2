package cron

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type stubOutboxRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (s *stubOutboxRetentionRepo) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.deleted, s.err
}

func TestOutboxRetentionDeletesBeforeCutoff(t *testing.T) {
	repo := &stubOutboxRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("job constructor failed: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expected := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if repo.cutoff.Sub(expected) > time.Minute || expected.Sub(repo.cutoff) > time.Minute {
		t.Fatalf("unexpected cutoff %s", repo.cutoff)
	}
}

func TestOutboxRetentionPropagatesErrors(t *testing.T) {
	repo := &stubOutboxRetentionRepo{err: fmt.Errorf("db down")}
	job, _ := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
