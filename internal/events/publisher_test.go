package events

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tOgg1/mxview/internal/logging"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		sig    *Signal
		want   bool
	}{
		{
			name:   "empty filter matches any signal",
			filter: Filter{},
			sig:    &Signal{Type: SignalReachedTop, RoomID: "!a:hs"},
			want:   true,
		},
		{
			name:   "nil signal returns false",
			filter: Filter{},
			sig:    nil,
			want:   false,
		},
		{
			name:   "type filter matches",
			filter: Filter{Types: []SignalType{SignalReplyRequested}},
			sig:    &Signal{Type: SignalReplyRequested, RoomID: "!a:hs"},
			want:   true,
		},
		{
			name:   "type filter rejects non-matching",
			filter: Filter{Types: []SignalType{SignalReplyRequested}},
			sig:    &Signal{Type: SignalReachedTop, RoomID: "!a:hs"},
			want:   false,
		},
		{
			name:   "multiple types - matches any",
			filter: Filter{Types: []SignalType{SignalReachedTop, SignalToggleReachedBottom}},
			sig:    &Signal{Type: SignalToggleReachedBottom, RoomID: "!a:hs"},
			want:   true,
		},
		{
			name:   "room filter rejects other rooms",
			filter: Filter{RoomID: "!a:hs"},
			sig:    &Signal{Type: SignalReachedTop, RoomID: "!b:hs"},
			want:   false,
		},
		{
			name:   "combined filter",
			filter: Filter{Types: []SignalType{SignalUnreadChanged}, RoomID: "!a:hs"},
			sig:    &Signal{Type: SignalUnreadChanged, RoomID: "!a:hs", Unread: true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(tt.sig)
			if got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInMemoryBus_Subscribe(t *testing.T) {
	bus := NewInMemoryBus()
	handler := func(sig *Signal) {}

	if err := bus.Subscribe("sub-1", Filter{}, handler); err != nil {
		t.Errorf("Subscribe() error = %v, want nil", err)
	}
	if bus.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", bus.SubscriberCount())
	}

	if err := bus.Subscribe("sub-1", Filter{}, handler); err != ErrSubscriptionExists {
		t.Errorf("Subscribe() duplicate error = %v, want %v", err, ErrSubscriptionExists)
	}
	if err := bus.Subscribe("", Filter{}, handler); err != ErrInvalidSubscriptionID {
		t.Errorf("Subscribe() empty ID error = %v, want %v", err, ErrInvalidSubscriptionID)
	}
	if err := bus.Subscribe("sub-2", Filter{}, nil); err != ErrNilHandler {
		t.Errorf("Subscribe() nil handler error = %v, want %v", err, ErrNilHandler)
	}
}

func TestInMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	_ = bus.Subscribe("sub-1", Filter{}, func(sig *Signal) {})

	if err := bus.Unsubscribe("sub-1"); err != nil {
		t.Errorf("Unsubscribe() error = %v, want nil", err)
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", bus.SubscriberCount())
	}
	if err := bus.Unsubscribe("sub-1"); err != ErrSubscriptionNotFound {
		t.Errorf("Unsubscribe() non-existent error = %v, want %v", err, ErrSubscriptionNotFound)
	}
}

func TestInMemoryBus_EmitWithFilter(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var replies []*ReplyRequest
	var tops int
	var mu sync.Mutex

	_ = bus.Subscribe("composer", Filter{Types: []SignalType{SignalReplyRequested}, RoomID: "!a:hs"}, func(sig *Signal) {
		mu.Lock()
		replies = append(replies, sig.Reply)
		mu.Unlock()
	})
	_ = bus.Subscribe("view", Filter{Types: []SignalType{SignalReachedTop}}, func(sig *Signal) {
		mu.Lock()
		tops++
		mu.Unlock()
	})

	bus.Emit(ctx, &Signal{Type: SignalReplyRequested, RoomID: "!a:hs", Reply: &ReplyRequest{SenderID: "@u:hs", EventID: "$1", QuotedBody: "hi"}})
	bus.Emit(ctx, &Signal{Type: SignalReplyRequested, RoomID: "!b:hs", Reply: &ReplyRequest{EventID: "$2"}})
	bus.Emit(ctx, &Signal{Type: SignalReachedTop, RoomID: "!b:hs"})
	bus.Emit(ctx, nil)

	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0].EventID != "$1" {
		t.Errorf("replies = %+v, want only $1", replies)
	}
	if tops != 1 {
		t.Errorf("tops = %d, want 1", tops)
	}
}

func TestInMemoryBus_HandlerMayUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	calls := 0
	_ = bus.Subscribe("once", Filter{}, func(sig *Signal) {
		calls++
		_ = bus.Unsubscribe("once")
	})

	bus.Emit(context.Background(), &Signal{Type: SignalSelectorChanged})
	bus.Emit(context.Background(), &Signal{Type: SignalSelectorChanged})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInMemoryBus_Recorder(t *testing.T) {
	var seen []SignalType
	bus := NewInMemoryBus(WithRecorder(func(_ context.Context, sig *Signal) {
		seen = append(seen, sig.Type)
	}))

	bus.Emit(context.Background(), &Signal{Type: SignalRoomProfileUpdated, RoomID: "!a:hs"})

	if len(seen) != 1 || seen[0] != SignalRoomProfileUpdated {
		t.Errorf("recorded = %v, want [room-profile-updated]", seen)
	}
}

func TestInMemoryBus_Close(t *testing.T) {
	bus := NewInMemoryBus()
	_ = bus.Subscribe("sub-1", Filter{}, func(sig *Signal) {})
	_ = bus.Subscribe("sub-2", Filter{}, func(sig *Signal) {})

	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", bus.SubscriberCount())
	}
}

func TestInMemoryBus_ConcurrentAccess(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var wg sync.WaitGroup
	var count int64

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			subID := "sub-" + string(rune('a'+id))
			_ = bus.Subscribe(subID, Filter{}, func(sig *Signal) {
				atomic.AddInt64(&count, 1)
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(ctx, &Signal{Type: SignalUnreadChanged, RoomID: "!a:hs"})
		}()
	}
	wg.Wait()

	expected := int64(10 * 100)
	if atomic.LoadInt64(&count) != expected {
		t.Errorf("count = %d, want %d", count, expected)
	}
}

func TestInMemoryBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	var logs bytes.Buffer
	logging.Init(logging.Config{Level: "error", Format: "json", Output: &logs})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	bus := NewInMemoryBus()
	var delivered int
	_ = bus.Subscribe("broken", Filter{}, func(sig *Signal) {
		panic("boom")
	})
	_ = bus.Subscribe("healthy", Filter{}, func(sig *Signal) {
		delivered++
	})

	for i := 0; i < 5; i++ {
		func() {
			defer func() {
				if pan := recover(); pan != nil {
					t.Fatalf("panic escaped Emit: %v", pan)
				}
			}()
			bus.Emit(context.Background(), &Signal{Type: SignalReachedTop, RoomID: "!a:hs"})
		}()
	}

	if delivered != 5 {
		t.Errorf("healthy subscriber delivered %d times, want 5", delivered)
	}
	if got := strings.Count(logs.String(), "signal handler panicked"); got != 5 {
		t.Errorf("logged %d handler panics, want 5: %s", got, logs.String())
	}
	if !strings.Contains(logs.String(), `"component":"events"`) {
		t.Errorf("panic log missing component field: %s", logs.String())
	}
}
