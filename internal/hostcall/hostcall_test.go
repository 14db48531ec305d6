package hostcall_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mediasolver/internal/hostcall"
	"mediasolver/internal/services"
)

func TestDoReturnsValueWithinTimeout(t *testing.T) {
	res := hostcall.Do(context.Background(), time.Second, func() (string, error) {
		return "MediaSolver", nil
	})
	if !res.Completed {
		t.Fatal("expected call to complete")
	}
	if res.Value != "MediaSolver" || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDoReturnsOperationError(t *testing.T) {
	boom := errors.New("boom")
	res := hostcall.Do(context.Background(), time.Second, func() (int, error) {
		return 0, boom
	})
	if !res.Completed {
		t.Fatal("expected call to complete")
	}
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected boom, got %v", res.Err)
	}
}

func TestDoAbandonsHungCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	res := hostcall.Do(context.Background(), 20*time.Millisecond, func() (bool, error) {
		<-release
		return true, nil
	})
	if res.Completed {
		t.Fatal("expected hung call to be reported incomplete")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("caller was held for %s", elapsed)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := hostcall.Do(ctx, 0, func() (int, error) {
		<-release
		return 0, nil
	})
	if res.Completed {
		t.Fatal("expected cancelled call to be incomplete")
	}
}

func TestDoRecoversPanic(t *testing.T) {
	res := hostcall.Do(context.Background(), time.Second, func() (int, error) {
		panic("scripting bridge exploded")
	})
	if !res.Completed || res.Err == nil {
		t.Fatalf("expected panic to surface as error, got %+v", res)
	}
}

func TestCallMapsTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	_, err := hostcall.Call(context.Background(), 10*time.Millisecond, "GetProjectManager", func() (int, error) {
		<-block
		return 1, nil
	})
	if !hostcall.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected services timeout marker, got %v", err)
	}
	var te *hostcall.TimeoutError
	if !errors.As(err, &te) || te.Op != "GetProjectManager" {
		t.Fatalf("expected TimeoutError naming the op, got %v", err)
	}
}

func TestDoReleaseHandsLateValueToRelease(t *testing.T) {
	unblock := make(chan struct{})
	released := make(chan string, 1)

	res := hostcall.DoRelease(context.Background(), 10*time.Millisecond, func() (string, error) {
		<-unblock
		return "session-1", nil
	}, func(v string) { released <- v })
	if res.Completed {
		t.Fatal("expected call to time out")
	}
	close(unblock)

	select {
	case v := <-released:
		if v != "session-1" {
			t.Fatalf("released %q, want session-1", v)
		}
	case <-time.After(time.Second):
		t.Fatal("late value was never released")
	}
}

func TestDoReleaseSkipsCompletedAndFailedCalls(t *testing.T) {
	var calls atomic.Int32
	res := hostcall.DoRelease(context.Background(), time.Second, func() (int, error) {
		return 7, nil
	}, func(int) { calls.Add(1) })
	if !res.Completed || res.Value != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}

	unblock := make(chan struct{})
	finished := make(chan struct{})
	_, err := hostcall.CallRelease(context.Background(), 10*time.Millisecond, "Dial", func() (int, error) {
		defer close(finished)
		<-unblock
		return 0, errors.New("refused")
	}, func(int) { calls.Add(1) })
	if !hostcall.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	close(unblock)
	<-finished
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("release ran %d times, want 0", n)
	}
}
