package eventbus

import (
	"testing"
	"time"
)

func TestBus_HandlersRunSynchronously(t *testing.T) {
	b := New()
	var got []int64
	b.On(SubmissionCreated, func(ev Event) {
		got = append(got, ev.Payload.(SubmissionEvent).SubmissionID)
	})

	b.Publish(SubmissionCreated, SubmissionEvent{QuestionID: 1, SubmissionID: 77})
	b.Publish(SubmissionJudged, SubmissionEvent{QuestionID: 1, SubmissionID: 78})

	if len(got) != 1 || got[0] != 77 {
		t.Errorf("expected [77], got %v", got)
	}
}

func TestBus_SubscriptionFiltersTopics(t *testing.T) {
	b := New()
	sub := b.Subscribe(4, NoticePosted)
	defer sub.Close()

	b.Publish(StateChanged, "s")
	b.Publish(NoticePosted, "n")

	select {
	case ev := <-sub.C():
		if ev.Topic != NoticePosted {
			t.Errorf("expected notice, got %s", ev.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case ev := <-sub.C():
		t.Errorf("unexpected event %s", ev.Topic)
	default:
	}
}

func TestBus_DropsOldestWhenFull(t *testing.T) {
	b := New()
	sub := b.Subscribe(2)

	for i := 0; i < 5; i++ {
		b.Publish(StateChanged, i)
	}

	if sub.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", sub.Dropped())
	}
	first := <-sub.C()
	second := <-sub.C()
	if first.Payload.(int) != 3 || second.Payload.(int) != 4 {
		t.Errorf("expected newest events 3,4, got %v,%v", first.Payload, second.Payload)
	}
}

func TestBus_CloseClosesSubscriptions(t *testing.T) {
	b := New()
	sub := b.Subscribe(1)
	b.Close()

	if _, ok := <-sub.C(); ok {
		t.Error("expected closed channel")
	}
	// Publishing and closing again after Close are no-ops.
	b.Publish(StateChanged, nil)
	sub.Close()
	b.Close()

	late := b.Subscribe(1)
	if _, ok := <-late.C(); ok {
		t.Error("expected subscription on closed bus to be closed")
	}
}

func TestSubscription_CloseDetaches(t *testing.T) {
	b := New()
	sub := b.Subscribe(1)
	sub.Close()
	b.Publish(StateChanged, nil)
	if _, ok := <-sub.C(); ok {
		t.Error("expected closed channel")
	}
}

func TestBus_OnAfterClose(t *testing.T) {
	b := New()
	b.Close()

	called := false
	b.On(SubmissionCreated, func(Event) { called = true })
	b.Publish(SubmissionCreated, SubmissionEvent{QuestionID: 1, SubmissionID: 2})
	if called {
		t.Error("expected handler registered after Close to never run")
	}
}
