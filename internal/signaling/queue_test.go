package signaling

import (
	"testing"
	"time"
)

func TestSendQueue_FIFOWithinByteBudget(t *testing.T) {
	q := newSendQueue(8)

	if !q.Enqueue([]byte("abc")) || !q.Enqueue([]byte("defgh")) {
		t.Fatalf("Enqueue within budget failed")
	}
	if q.Enqueue([]byte("i")) {
		t.Fatalf("Enqueue over budget succeeded")
	}
	if got := q.DropCount(); got != 1 {
		t.Fatalf("DropCount=%d, want 1", got)
	}

	for _, want := range []string{"abc", "defgh"} {
		frame, ok := q.Dequeue()
		if !ok || string(frame) != want {
			t.Fatalf("Dequeue=%q,%v, want %q,true", frame, ok, want)
		}
	}

	// Budget is returned as frames drain.
	if !q.Enqueue([]byte("12345678")) {
		t.Fatalf("Enqueue after drain failed")
	}
}

func TestSendQueue_RejectsOversizedFrame(t *testing.T) {
	q := newSendQueue(4)
	if q.Enqueue([]byte("12345")) {
		t.Fatalf("Enqueue of frame larger than budget succeeded")
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len=%d, want 0", got)
	}
}

func TestSendQueue_CloseUnblocksDequeue(t *testing.T) {
	q := newSendQueue(16)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("Dequeue returned a frame after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Dequeue did not return after Close")
	}

	if q.Enqueue([]byte("x")) {
		t.Fatalf("Enqueue after Close succeeded")
	}
}
