package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/amaumene/vortex/internal/utils"
)

func TestCronTickerFiresAndStops(t *testing.T) {
	ticker := NewCronTicker(utils.NewDiscardLogger())

	var count atomic.Int32
	stop := ticker.Every(time.Second, func() {
		count.Add(1)
	})

	deadline := time.Now().Add(3 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if count.Load() == 0 {
		t.Fatal("Expected ticker to fire at least once")
	}

	stop()
	stop() // second stop must be a no-op

	fired := count.Load()
	time.Sleep(1500 * time.Millisecond)
	if count.Load() != fired {
		t.Errorf("Expected no firing after stop, got %d more", count.Load()-fired)
	}
}

func TestCronTickerDoesNotWaitForSlowTask(t *testing.T) {
	ticker := NewCronTicker(utils.NewDiscardLogger())

	var count atomic.Int32
	stop := ticker.Every(time.Second, func() {
		count.Add(1)
		time.Sleep(3 * time.Second)
	})
	defer stop()

	time.Sleep(2500 * time.Millisecond)
	if count.Load() < 2 {
		t.Errorf("Expected overlapping firings, got %d", count.Load())
	}
}

func TestManualTicker(t *testing.T) {
	m := NewManualTicker()

	var a, b int
	stopA := m.Every(time.Second, func() { a++ })
	m.Every(time.Second, func() { b++ })

	m.Tick()
	if a != 1 || b != 1 {
		t.Fatalf("Expected both tasks to run once, got a=%d b=%d", a, b)
	}

	stopA()
	m.Tick()
	if a != 1 || b != 2 {
		t.Errorf("Expected only b to run, got a=%d b=%d", a, b)
	}
	if m.Active() != 1 || m.Started() != 2 {
		t.Errorf("Expected 1 active of 2 started, got %d of %d", m.Active(), m.Started())
	}
}
