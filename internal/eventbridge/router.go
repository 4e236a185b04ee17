package eventbridge

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	defaultSubscriberCapacity = 32
	defaultBacklogLimit       = 20
	defaultDedupeWindow       = 1024

	// allContracts keys subscribers that receive every event.
	allContracts = "*"
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router fans webhook events out to subscribers keyed by contract ID, with
// buffering for contracts nobody is watching yet, deduplication by event ID,
// and bounded channels.
type Router struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	backlog      map[string][]Event
	recentIDs    map[string]struct{}
	recentOrder  []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	logger       *zap.Logger
}

// Subscription represents an active subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription and closes Events.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:  map[string]map[*subscriber]struct{}{},
		backlog:      map[string][]Event{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop diagnostics.
func RouterWithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithBacklogLimit overrides the backlog size for pre-subscription buffering.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RouterWithDedupeWindow controls how many recent event IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for events about one contract. Events that arrived
// before anyone subscribed are replayed first.
func (r *Router) Subscribe(contractID string) Subscription {
	return r.subscribe(normalizeContract(contractID), true)
}

// SubscribeAll registers for every event regardless of contract.
func (r *Router) SubscribeAll() Subscription {
	return r.subscribe(allContracts, false)
}

func (r *Router) subscribe(key string, replay bool) Subscription {
	sub := newSubscriber(r.channelSize, r.logger)
	var backlog []Event
	r.mu.Lock()
	if r.subscribers[key] == nil {
		r.subscribers[key] = map[*subscriber]struct{}{}
	}
	r.subscribers[key][sub] = struct{}{}
	if existing := r.backlog[key]; replay && len(existing) > 0 {
		backlog = append(backlog, existing...)
		delete(r.backlog, key)
	}
	r.mu.Unlock()
	for _, event := range backlog {
		sub.deliver(event)
	}
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			r.removeSubscriber(key, sub)
		},
	}
}

// HandleEvent satisfies the EventProcessor interface.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route delivers the event to subscribers or buffers it when nobody watches
// its contract.
func (r *Router) Route(event Event) {
	if event.EventID != "" && r.isDuplicate(event.EventID) {
		return
	}
	key := normalizeContract(event.ContractID)
	if key == "" {
		return
	}
	r.mu.RLock()
	subs := r.snapshotSubscribers(key)
	watchers := r.snapshotSubscribers(allContracts)
	r.mu.RUnlock()
	for _, sub := range watchers {
		sub.deliver(event)
	}
	if len(subs) == 0 {
		r.bufferEvent(key, event)
		return
	}
	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (r *Router) snapshotSubscribers(key string) []*subscriber {
	live := r.subscribers[key]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(key string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs := r.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.subscribers, key)
		}
	}
	sub.close()
}

func (r *Router) bufferEvent(key string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.backlog[key]
	if len(queue) >= r.backlogLimit {
		queue = queue[1:]
		r.logger.Debug("eventbridge backlog drop", zap.String("contract_id", key), zap.Int("limit", r.backlogLimit))
	}
	queue = append(queue, event)
	r.backlog[key] = queue
}

func (r *Router) isDuplicate(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[eventID]; ok {
		return true
	}
	r.recentIDs[eventID] = struct{}{}
	r.recentOrder = append(r.recentOrder, eventID)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

func normalizeContract(contractID string) string {
	return strings.TrimSpace(contractID)
}

type subscriber struct {
	ch      chan Event
	logger  *zap.Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger *zap.Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver never blocks. On overflow one of the oldest queued event and the
// incoming event is dropped, keeping critical events over routine ones.
func (s *subscriber) deliver(event Event) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	var oldest Event
	select {
	case oldest = <-s.ch:
	default:
		s.ch <- event
		return
	}
	if shouldDropOldest(oldest, event) {
		s.logDrop(oldest, "queue overflow")
		s.ch <- event
	} else {
		s.ch <- oldest
		s.logDrop(event, "queue overflow:incoming")
	}
}

func (s *subscriber) logDrop(event Event, reason string) {
	s.logger.Debug("eventbridge dropped event", zap.String("type", event.Type), zap.String("reason", reason))
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func shouldDropOldest(oldest, incoming Event) bool {
	switch {
	case oldest.Critical() && !incoming.Critical():
		return false
	case !oldest.Critical() && incoming.Critical():
		return true
	}
	oldestRoutine := oldest.Type == TypeNotificationCreated
	incomingRoutine := incoming.Type == TypeNotificationCreated
	if !oldestRoutine && incomingRoutine {
		return false
	}
	return true
}
