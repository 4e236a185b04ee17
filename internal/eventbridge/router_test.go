package eventbridge

import (
	"testing"
)

func TestRouterBuffersAndFlushes(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(4))
	first := Event{EventID: "evt-1", ContractID: "c-1", Type: TypeNotificationCreated}
	second := Event{EventID: "evt-2", ContractID: "c-1", Type: TypeStatusChanged}
	router.Route(first)
	router.Route(second)
	sub := router.Subscribe(" c-1 ")
	defer sub.Close()
	got1 := <-sub.Events
	if got1.EventID != first.EventID {
		t.Fatalf("expected first buffered event, got %s", got1.EventID)
	}
	got2 := <-sub.Events
	if got2.EventID != second.EventID {
		t.Fatalf("expected second buffered event, got %s", got2.EventID)
	}
}

func TestRouterDedupeByEventID(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("c-1")
	defer sub.Close()
	event := Event{EventID: "evt-1", ContractID: "c-1", Type: TypeStatusChanged}
	router.Route(event)
	router.Route(event)
	select {
	case got := <-sub.Events:
		if got.EventID != event.EventID {
			t.Fatalf("unexpected event: %s", got.EventID)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case <-sub.Events:
		t.Fatalf("duplicate event delivered")
	default:
	}
}

func TestRouterIsolatesContracts(t *testing.T) {
	router := NewRouter()
	mine := router.Subscribe("c-1")
	defer mine.Close()
	all := router.SubscribeAll()
	defer all.Close()
	router.Route(Event{EventID: "evt-1", ContractID: "c-2", Type: TypeSigned})
	select {
	case got := <-mine.Events:
		t.Fatalf("received another contract's event: %+v", got)
	default:
	}
	select {
	case got := <-all.Events:
		if got.ContractID != "c-2" {
			t.Fatalf("unexpected event on firehose: %+v", got)
		}
	default:
		t.Fatalf("firehose subscriber missed the event")
	}
	// c-2 had no watcher of its own, so the event is still waiting for one.
	late := router.Subscribe("c-2")
	defer late.Close()
	if got := <-late.Events; got.EventID != "evt-1" {
		t.Fatalf("expected backlog replay, got %s", got.EventID)
	}
}

func TestRouterDropsOldestRoutineEventOnOverflow(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe("c-1")
	defer sub.Close()
	oldest := Event{EventID: "evt-1", ContractID: "c-1", Type: TypeNotificationCreated}
	critical := Event{EventID: "evt-2", ContractID: "c-1", Type: TypeSigned}
	router.Route(oldest)
	router.Route(critical)
	if got := <-sub.Events; got.EventID != critical.EventID {
		t.Fatalf("expected critical event to replace oldest, got %s", got.EventID)
	}
}

func TestRouterDropsIncomingWhenOldestCritical(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe("c-1")
	defer sub.Close()
	oldest := Event{EventID: "evt-1", ContractID: "c-1", Type: TypeCancelled}
	droppable := Event{EventID: "evt-2", ContractID: "c-1", Type: TypeNotificationCreated}
	router.Route(oldest)
	router.Route(droppable)
	if got := <-sub.Events; got.EventID != oldest.EventID {
		t.Fatalf("expected oldest critical event to remain, got %s", got.EventID)
	}
	select {
	case <-sub.Events:
		t.Fatalf("unexpected extra event")
	default:
	}
}

func TestClosedSubscriptionIgnoresEvents(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("c-1")
	sub.Close()
	sub.Close()
	router.Route(Event{EventID: "evt-1", ContractID: "c-1", Type: TypeSigned})
	if _, ok := <-sub.Events; ok {
		t.Fatalf("closed subscription should not deliver")
	}
}
