package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"invoice-dashboard-go/internal/graph"
	"invoice-dashboard-go/internal/poller"
)

// stubClient serves an immediately-complete delta feed
type stubClient struct {
	mu      sync.Mutex
	fetches int
	block   chan struct{}
}

func (c *stubClient) Token(ctx context.Context) error { return nil }

func (c *stubClient) InitialDeltaURL(mailbox string) string {
	return "https://graph.test/delta/initial"
}

func (c *stubClient) FetchDeltaPage(ctx context.Context, pageURL string) (*graph.DeltaPage, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	if c.block != nil {
		<-c.block
	}
	return &graph.DeltaPage{DeltaLink: "https://graph.test/delta/done"}, nil
}

func (c *stubClient) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

type stubStore struct {
	mu     sync.Mutex
	cursor string
}

func (s *stubStore) LoadDeltaLink(mailbox string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *stubStore) SaveDeltaLink(mailbox, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = link
	return nil
}

func (s *stubStore) InsertReplyNote(invoiceID uint, text string, date time.Time, messageID string) (bool, error) {
	return true, nil
}

func newTestScheduler(client *stubClient) *Scheduler {
	p := poller.New("ap@example.com", client, &stubStore{}, nil)
	return NewScheduler(3600, p)
}

func TestSchedulerStartStop(t *testing.T) {
	sched := newTestScheduler(&stubClient{})

	if err := sched.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !sched.IsRunning() {
		t.Fatalf("scheduler should be running after Start")
	}
	if err := sched.Start(); err == nil {
		t.Fatalf("second Start should fail while running")
	}
	if err := sched.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if sched.IsRunning() {
		t.Fatalf("scheduler should not be running after Stop")
	}
}

func TestRunOnceRecordsLastRun(t *testing.T) {
	client := &stubClient{}
	sched := newTestScheduler(client)

	sched.RunOnce()

	if client.fetchCount() != 1 {
		t.Fatalf("expected exactly one fetch, got %d", client.fetchCount())
	}
	if sched.LastRun().IsZero() {
		t.Fatalf("LastRun should be set after RunOnce")
	}
	if sched.LastError() != "" {
		t.Fatalf("LastError should be empty after a clean cycle, got %q", sched.LastError())
	}
}

func TestOverlappingCyclesAreSkipped(t *testing.T) {
	client := &stubClient{block: make(chan struct{})}
	sched := newTestScheduler(client)

	done := make(chan struct{})
	go func() {
		sched.RunOnce()
		close(done)
	}()

	// Wait until the first cycle is inside the fetch, then fire another
	// tick; the in-flight guard must drop it instead of racing the cursor.
	deadline := time.After(2 * time.Second)
	for client.fetchCount() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first cycle never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sched.RunOnce()
	if n := client.fetchCount(); n != 1 {
		t.Fatalf("overlapping cycle should be skipped, got %d fetches", n)
	}

	close(client.block)
	<-done
	if n := client.fetchCount(); n != 1 {
		t.Fatalf("expected one completed fetch, got %d", n)
	}
}
