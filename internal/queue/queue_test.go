package queue

import (
	"context"
	"testing"
	"time"
)

type job struct {
	AttendeeID string `json:"attendee_id"`
	Day        int    `json:"day"`
}

func TestInMemory_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage("celebration", job{AttendeeID: "a-1", Day: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-ch:
		if got.Type != "celebration" {
			t.Fatalf("unexpected type %q", got.Type)
		}
		var j job
		if err := got.Decode(&j); err != nil {
			t.Fatal(err)
		}
		if j.AttendeeID != "a-1" || j.Day != 1 {
			t.Fatalf("unexpected body %+v", j)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemory_ConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	ch, _ := q.Consume(ctx)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	msg := Message{Type: "x"}
	if err := q.Publish(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, msg); err == nil {
		t.Fatal("expected full queue to honour the deadline")
	}
}

func TestInMemory_StampsEnqueueTime(t *testing.T) {
	q := NewInMemory(2)
	if err := q.Publish(context.Background(), Message{Type: "x"}); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one waiting job, got %d", q.Len())
	}
	msg := <-q.ch
	if msg.EnqueuedAt.IsZero() {
		t.Fatal("enqueue time not stamped")
	}
}

func TestInMemory_CancelledConsumerRequeues(t *testing.T) {
	q := NewInMemory(2)
	if err := q.Publish(context.Background(), Message{Type: "celebration"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := q.Consume(ctx)

	deadline := time.Now().Add(time.Second)
	for q.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("consumer never picked the job up")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	for q.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("job not returned to the queue")
		}
		time.Sleep(time.Millisecond)
	}
	if _, ok := <-ch; ok {
		t.Fatal("no job should be delivered after cancel")
	}
}
