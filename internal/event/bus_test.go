package event

import (
	"errors"
	"testing"
)

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"editor.editableKeyup", "editor.editableKeyup", true},
		{"editor.editableKeyup", "editor.*", true},
		{"editor.editableKeyup", "*", false},
		{"editor.editableKeyup", "**", true},
		{"editor.a.b", "editor.**", true},
		{"editor", "editor.**", true},
		{"editor.a.b", "editor.*", false},
		{"other.blur", "editor.*", false},
		{"editor.blur", "**.blur", true},
	}
	for _, tt := range tests {
		if got := tt.topic.Matches(tt.pattern); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
		}
	}
}

func TestTopicIsValid(t *testing.T) {
	for _, topic := range []Topic{"", ".a", "a.", "a..b"} {
		if topic.IsValid() {
			t.Errorf("%q should be invalid", topic)
		}
	}
	if !TopicKeyup.IsValid() {
		t.Error("editor topic should be valid")
	}
	if TopicKeyup.Base() != "editableKeyup" {
		t.Errorf("Base = %q", TopicKeyup.Base())
	}
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewBus()
	var got []string
	record := func(name string) Handler {
		return func(Event) error {
			got = append(got, name)
			return nil
		}
	}

	if _, err := b.Subscribe(TopicKeyup, record("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("editor.*", record("wild")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(TopicKeyup, record("early"), WithPriority(PriorityHigh)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(TopicBlur, record("blur")); err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(TopicKeyup, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"early", "first", "wild"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	sub, err := b.Subscribe(TopicBlur, func(Event) error { calls++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID() == "" {
		t.Error("subscription should have an ID")
	}

	sub.Cancel()
	sub.Cancel()
	_ = b.Publish(TopicBlur, nil)

	if calls != 0 {
		t.Errorf("calls = %d after cancel", calls)
	}
	if err := b.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestBus_CancelDuringDelivery(t *testing.T) {
	b := NewBus()
	var second *Subscription
	calls := 0
	_, _ = b.Subscribe(TopicKeyup, func(Event) error {
		second.Cancel()
		return nil
	})
	second, _ = b.Subscribe(TopicKeyup, func(Event) error { calls++; return nil })

	_ = b.Publish(TopicKeyup, nil)
	if calls != 0 {
		t.Error("handler cancelled mid-publish should not run")
	}
}

func TestBus_Once(t *testing.T) {
	b := NewBus()
	calls := 0
	_, _ = b.Subscribe(TopicFocus, func(Event) error { calls++; return nil }, Once())

	_ = b.Publish(TopicFocus, nil)
	_ = b.Publish(TopicFocus, nil)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestBus_PanicAndErrorRecovered(t *testing.T) {
	b := NewBus()
	boom := errors.New("boom")
	ran := false
	_, _ = b.Subscribe(TopicInput, func(Event) error { panic("bad handler") })
	_, _ = b.Subscribe(TopicInput, func(Event) error { return boom })
	_, _ = b.Subscribe(TopicInput, func(Event) error { ran = true; return nil })

	err := b.Publish(TopicInput, "payload")
	if !ran {
		t.Error("later handlers should still run")
	}
	if !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("expected panic error, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestBus_InvalidArguments(t *testing.T) {
	b := NewBus()
	if _, err := b.Subscribe("", func(Event) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty pattern: %v", err)
	}
	if _, err := b.Subscribe(TopicBlur, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler: %v", err)
	}
	if err := b.Publish("editor.*", nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("wildcard publish: %v", err)
	}
}

func TestBus_PayloadPassedThrough(t *testing.T) {
	b := NewBus()
	var got Event
	_, _ = b.Subscribe(TopicClick, func(ev Event) error { got = ev; return nil })

	_ = b.Publish(TopicClick, 42)
	if got.Topic != TopicClick || got.Payload != 42 {
		t.Errorf("event = %+v", got)
	}
}
