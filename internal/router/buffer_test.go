package router

import (
	"slices"
	"sync"
	"testing"
	"time"
)

// drainAll empties buf without blocking.
func drainAll[T any](buf *GrowableBuffer[T]) []T {
	var out []T
	for {
		v, ok := buf.TryReceive()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestBuffer_FIFO(t *testing.T) {
	tests := []struct {
		name        string
		initial     int
		items       int
		wantResizes int
	}{
		{"below threshold", 10, 5, 0},
		{"at threshold", 10, 7, 1},
		{"many doublings", 4, 100, 6},
		{"capacity one", 1, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewGrowableBuffer[int](tt.initial)
			for _, v := range seq(tt.items) {
				if !buf.Send(v) {
					t.Fatalf("Send(%d) = false", v)
				}
			}

			stats := buf.Stats()
			if stats.Count != tt.items {
				t.Errorf("Count = %d, want %d", stats.Count, tt.items)
			}
			if stats.ResizeCount != tt.wantResizes {
				t.Errorf("ResizeCount = %d, want %d", stats.ResizeCount, tt.wantResizes)
			}
			if stats.Count*100 >= stats.Capacity*growPercent && stats.Capacity > 1 {
				t.Errorf("Count %d / Capacity %d at or above %d%%", stats.Count, stats.Capacity, growPercent)
			}

			if got := drainAll(buf); !slices.Equal(got, seq(tt.items)) {
				t.Errorf("received %v, want %v", got, seq(tt.items))
			}
		})
	}
}

func TestBuffer_GrowWhileWrapped(t *testing.T) {
	buf := NewGrowableBuffer[string](10)

	for _, v := range []string{"a", "b", "c", "d", "e", "f"} {
		buf.Send(v)
	}
	buf.DrainTo(5)

	// head is now 5; k wraps to slot 0 and l triggers a grow.
	for _, v := range []string{"g", "h", "i", "j", "k", "l"} {
		buf.Send(v)
	}
	if buf.Stats().ResizeCount != 1 {
		t.Fatalf("ResizeCount = %d, want 1", buf.Stats().ResizeCount)
	}

	want := []string{"f", "g", "h", "i", "j", "k", "l"}
	if got := drainAll(buf); !slices.Equal(got, want) {
		t.Errorf("received %v, want %v", got, want)
	}
}

func TestBuffer_ReceiveBlocksUntilSend(t *testing.T) {
	buf := NewGrowableBuffer[EventMsg](4)
	got := make(chan EventMsg, 1)

	go func() {
		if msg, ok := buf.Receive(); ok {
			got <- msg
		}
	}()

	select {
	case msg := <-got:
		t.Fatalf("Receive returned %+v before any Send", msg)
	case <-time.After(20 * time.Millisecond):
	}

	buf.Send(EventMsg{TournamentID: "t-1", EventType: "vote_cast"})

	select {
	case msg := <-got:
		if msg.TournamentID != "t-1" || msg.EventType != "vote_cast" {
			t.Errorf("received %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked Receive")
	}
}

func TestBuffer_Close(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	buf.Send(1)
	buf.Send(2)
	buf.Close()

	if buf.Send(3) {
		t.Error("Send after Close = true")
	}

	// Buffered items survive Close; Receive does not block once empty.
	for _, want := range []int{1, 2} {
		v, ok := buf.Receive()
		if !ok || v != want {
			t.Errorf("Receive() = %d, %v; want %d, true", v, ok, want)
		}
	}
	if _, ok := buf.Receive(); ok {
		t.Error("Receive on closed empty buffer = true")
	}
}

func TestBuffer_CloseWakesReceivers(t *testing.T) {
	buf := NewGrowableBuffer[int](10)
	const receivers = 3

	results := make(chan bool, receivers)
	for range receivers {
		go func() {
			_, ok := buf.Receive()
			results <- ok
		}()
	}

	time.Sleep(10 * time.Millisecond)
	buf.Close()

	for range receivers {
		select {
		case ok := <-results:
			if ok {
				t.Error("Receive = true after Close on empty buffer")
			}
		case <-time.After(time.Second):
			t.Fatal("Close did not wake all receivers")
		}
	}
}

func TestBuffer_DrainTo(t *testing.T) {
	tests := []struct {
		name     string
		sent     int
		max      int
		wantLen  int
		wantLeft int
	}{
		{"partial", 10, 4, 4, 6},
		{"zero means all", 10, 0, 10, 0},
		{"negative means all", 3, -1, 3, 0},
		{"max above count", 3, 50, 3, 0},
		{"empty", 0, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewGrowableBuffer[int](8)
			for _, v := range seq(tt.sent) {
				buf.Send(v)
			}

			items := buf.DrainTo(tt.max)
			if len(items) != tt.wantLen {
				t.Fatalf("DrainTo(%d) returned %d items, want %d", tt.max, len(items), tt.wantLen)
			}
			if tt.wantLen == 0 && items != nil {
				t.Errorf("DrainTo on empty buffer = %v, want nil", items)
			}
			if !slices.Equal(items, seq(tt.wantLen)) {
				t.Errorf("items = %v, want oldest first", items)
			}
			if buf.Len() != tt.wantLeft {
				t.Errorf("Len() = %d, want %d", buf.Len(), tt.wantLeft)
			}
		})
	}
}

func TestBuffer_ConcurrentProducers(t *testing.T) {
	buf := NewGrowableBuffer[int](2)
	const producers, perProducer = 4, 500

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				buf.Send(p*perProducer + i)
			}
		}()
	}

	done := make(chan []int)
	go func() {
		var got []int
		for {
			v, ok := buf.Receive()
			if !ok {
				done <- got
				return
			}
			got = append(got, v)
		}
	}()

	wg.Wait()
	buf.Close()
	got := <-done

	if len(got) != producers*perProducer {
		t.Fatalf("received %d items, want %d", len(got), producers*perProducer)
	}

	// Each producer's items arrive in the order it sent them.
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for _, v := range got {
		p, i := v/perProducer, v%perProducer
		if i <= last[p] {
			t.Fatalf("producer %d: item %d after %d", p, i, last[p])
		}
		last[p] = i
	}
}

func TestBuffer_Stats(t *testing.T) {
	buf := NewGrowableBuffer[int](10)

	want := BufferStats{Capacity: 10}
	if got := buf.Stats(); got != want {
		t.Errorf("initial Stats() = %+v, want %+v", got, want)
	}

	buf.Send(1)
	buf.Send(2)
	buf.Send(3)
	buf.TryReceive()
	buf.TryReceive()

	want = BufferStats{Count: 1, Capacity: 10, TotalReceived: 3, TotalSent: 2}
	if got := buf.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestNewGrowableBuffer_MinCapacity(t *testing.T) {
	for _, n := range []int{0, -5} {
		if got := NewGrowableBuffer[int](n).Cap(); got != 1 {
			t.Errorf("NewGrowableBuffer(%d).Cap() = %d, want 1", n, got)
		}
	}
}
