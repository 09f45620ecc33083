package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FatPandaC8/Vexpo/pkg/queue"
)

type fakeStorage struct {
	mu      sync.Mutex
	deleted []string
	broken  map[string]bool
}

func (f *fakeStorage) DeleteModel(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[key] {
		return errors.New("access denied")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

// chanQueue feeds jobs from a channel and records retries.
type chanQueue struct {
	jobs    chan *queue.Job
	mu      sync.Mutex
	retried []*queue.Job
}

func (q *chanQueue) Dequeue(ctx context.Context, _ time.Duration) (*queue.Job, error) {
	select {
	case j := <-q.jobs:
		return j, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *chanQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, job)
	return nil
}

func cleanupJob(t *testing.T, keys ...string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ModelCleanupPayload{Keys: keys})
	if err != nil {
		t.Fatal(err)
	}
	return &queue.Job{ID: "j1", Type: queue.JobTypeModelCleanup, Payload: body}
}

func TestProcessDeletesKeys(t *testing.T) {
	s := &fakeStorage{}
	p := NewModelCleanupProcessor(s, nil, nil)
	if err := p.Process(context.Background(), cleanupJob(t, "a.glb", "b.glb")); err != nil {
		t.Fatal(err)
	}
	if len(s.deleted) != 2 {
		t.Fatalf("deleted = %v", s.deleted)
	}
}

func TestProcessNarrowsPayloadToFailures(t *testing.T) {
	s := &fakeStorage{broken: map[string]bool{"b.glb": true}}
	p := NewModelCleanupProcessor(s, nil, nil)
	job := cleanupJob(t, "a.glb", "b.glb")
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected error")
	}
	var payload queue.ModelCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Keys) != 1 || payload.Keys[0] != "b.glb" {
		t.Fatalf("remaining = %v", payload.Keys)
	}
}

func TestProcessRejectsUnknownType(t *testing.T) {
	p := NewModelCleanupProcessor(&fakeStorage{}, nil, nil)
	if err := p.Process(context.Background(), &queue.Job{Type: "email"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunRetriesFailedJobs(t *testing.T) {
	s := &fakeStorage{broken: map[string]bool{"bad.glb": true}}
	q := &chanQueue{jobs: make(chan *queue.Job, 2)}
	p := NewModelCleanupProcessor(s, q, nil)
	p.backoff = time.Millisecond

	q.jobs <- cleanupJob(t, "ok.glb")
	q.jobs <- cleanupJob(t, "bad.glb")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		n := len(q.retried)
		q.mu.Unlock()
		if n == 1 && s.count() == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("retried = %d, deleted = %d", n, s.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestInlineCleaner(t *testing.T) {
	s := &fakeStorage{}
	c := NewInlineCleaner(s, nil)
	if err := c.EnqueueModelCleanup(context.Background(), "a.glb", ""); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for s.count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("object not deleted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
