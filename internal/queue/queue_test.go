package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewRecomputeMessage(RecomputeJob{Date: "2024-03-15", StudentIDs: []int64{10, 11}})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatal(err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-out:
		if got.Type != TypeRecompute {
			t.Fatalf("got type %q", got.Type)
		}
		job, err := got.RecomputeJob()
		if err != nil {
			t.Fatal(err)
		}
		if job.Date != "2024-03-15" || len(job.StudentIDs) != 2 {
			t.Fatalf("got job %+v", job)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestRecomputeJobOmitsEmptyStudentList(t *testing.T) {
	msg, err := NewRecomputeMessage(RecomputeJob{Date: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	job, err := msg.RecomputeJob()
	if err != nil {
		t.Fatal(err)
	}
	// A full sweep must round-trip as nil, not an empty slice.
	if job.StudentIDs != nil {
		t.Fatalf("got %v, want nil", job.StudentIDs)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeRecompute, Body: []byte(`{"date":"2024-03-15"}`)}
	got, err := deserialize(serialize(msg))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
		t.Fatalf("got %+v", got)
	}
}

func TestDeserializeWithoutType(t *testing.T) {
	got, err := deserialize("no-separator-here")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != "" || string(got.Body) != "no-separator-here" {
		t.Fatalf("got %+v", got)
	}
}
