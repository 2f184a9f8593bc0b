package bus

import (
	"testing"

	"ToxicTide/pkg/logger"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := New(logger.Nop())

	var got []int
	b.Subscribe(TopicFeatures, func(payload any) { got = append(got, 1) })
	b.Subscribe(TopicFeatures, func(payload any) { got = append(got, 2) })

	n := b.Publish(TopicFeatures, "payload")
	if n != 2 {
		t.Fatalf("invoked %d handlers, want 2", n)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("delivery order = %v, want [1 2]", got)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New(logger.Nop())
	if n := b.Publish(TopicRisk, struct{}{}); n != 0 {
		t.Fatalf("invoked %d handlers on empty topic", n)
	}
}

func TestPublishIsolatesTopics(t *testing.T) {
	b := New(logger.Nop())

	var calls int
	b.Subscribe(TopicOAD, func(payload any) { calls++ })

	b.Publish(TopicVAD, struct{}{})
	if calls != 0 {
		t.Fatalf("handler on %s received %s event", TopicOAD, TopicVAD)
	}
	b.Publish(TopicOAD, struct{}{})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPanickingHandlerDoesNotStopFanout(t *testing.T) {
	b := New(logger.Nop())

	var after bool
	b.Subscribe(TopicSignal, func(payload any) { panic("boom") })
	b.Subscribe(TopicSignal, func(payload any) { after = true })

	n := b.Publish(TopicSignal, struct{}{})
	if n != 2 {
		t.Fatalf("invoked %d handlers, want 2", n)
	}
	if !after {
		t.Fatal("handler after a panicking one was not invoked")
	}
}

func TestPublishedCounter(t *testing.T) {
	b := New(logger.Nop())
	b.Publish(TopicPlan, struct{}{})
	b.Publish(TopicPlan, struct{}{})
	if got := b.Published(); got != 2 {
		t.Fatalf("published = %d, want 2", got)
	}
}

func TestPayloadReachesHandler(t *testing.T) {
	b := New(logger.Nop())

	var got any
	b.Subscribe(TopicFill, func(payload any) { got = payload })
	b.Publish(TopicFill, 42)

	if got != 42 {
		t.Fatalf("payload = %v, want 42", got)
	}
}
