package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

func TestCompletesWhenCheckReportsDone(t *testing.T) {
	var mu sync.Mutex
	checks := 0
	check := func(ctx context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		checks++
		return checks >= 3, nil
	}

	var result error
	gotDone := make(chan struct{})
	s := Start(context.Background(), Config{
		StatusInterval:  5 * time.Millisecond,
		MessageInterval: time.Hour,
		MaxDuration:     time.Minute,
	}, check, nil, func(err error) {
		result = err
		close(gotDone)
	})
	defer s.Stop()

	waitDone(t, s)
	<-gotDone
	if result != nil {
		t.Errorf("onDone err = %v, want nil", result)
	}
	mu.Lock()
	defer mu.Unlock()
	if checks != 3 {
		t.Errorf("checks = %d, want 3", checks)
	}
}

func TestCheckErrorIsTerminal(t *testing.T) {
	boom := errors.New("remote rejected the job")
	check := func(ctx context.Context) (bool, error) {
		return false, boom
	}

	var result error
	s := Start(context.Background(), Config{
		StatusInterval:  5 * time.Millisecond,
		MessageInterval: time.Hour,
		MaxDuration:     time.Minute,
	}, check, nil, func(err error) { result = err })
	defer s.Stop()

	waitDone(t, s)
	if !errors.Is(result, boom) {
		t.Errorf("onDone err = %v, want %v", result, boom)
	}
}

func TestForceFailAfterMaxDuration(t *testing.T) {
	check := func(ctx context.Context) (bool, error) { return false, nil }

	var result error
	s := Start(context.Background(), Config{
		StatusInterval:  5 * time.Millisecond,
		MessageInterval: time.Hour,
		MaxDuration:     30 * time.Millisecond,
	}, check, nil, func(err error) { result = err })
	defer s.Stop()

	waitDone(t, s)
	if !errors.Is(result, ErrTimedOut) {
		t.Errorf("onDone err = %v, want ErrTimedOut", result)
	}
}

func TestProgressMessagesRotateInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	onMessage := func(msg string) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	}

	done := make(chan struct{})
	check := func(ctx context.Context) (bool, error) {
		mu.Lock()
		enough := len(got) >= 4
		mu.Unlock()
		return enough, nil
	}
	s := Start(context.Background(), Config{
		StatusInterval:  5 * time.Millisecond,
		MessageInterval: 2 * time.Millisecond,
		MaxDuration:     time.Minute,
		Messages:        []string{"أ", "ب", "ج"},
	}, check, onMessage, func(error) { close(done) })
	defer s.Stop()

	waitDone(t, s)
	<-done

	mu.Lock()
	defer mu.Unlock()
	want := []string{"أ", "ب", "ج", "أ"}
	for i, w := range want {
		if i >= len(got) || got[i] != w {
			t.Fatalf("messages = %v, want prefix %v", got, want)
		}
	}
}

func TestStopSuppressesCallbacks(t *testing.T) {
	check := func(ctx context.Context) (bool, error) { return false, nil }

	called := make(chan struct{}, 1)
	s := Start(context.Background(), Config{
		StatusInterval:  time.Hour,
		MessageInterval: time.Hour,
		MaxDuration:     time.Hour,
	}, check, nil, func(error) { called <- struct{}{} })

	s.Stop()
	s.Stop() // idempotent
	waitDone(t, s)

	select {
	case <-called:
		t.Fatal("onDone invoked after Stop")
	default:
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	check := func(ctx context.Context) (bool, error) { return false, nil }

	var result error
	s := Start(ctx, Config{
		StatusInterval:  time.Hour,
		MessageInterval: time.Hour,
		MaxDuration:     time.Hour,
	}, check, nil, func(err error) { result = err })
	defer s.Stop()

	cancel()
	waitDone(t, s)
	if !errors.Is(result, context.Canceled) {
		t.Errorf("onDone err = %v, want context.Canceled", result)
	}
}
