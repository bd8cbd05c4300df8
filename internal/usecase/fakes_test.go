package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"MarketSniper/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStore is an in-memory Storage.
type memoryStore struct {
	mu         sync.Mutex
	tasks      map[int64]domain.Task
	cart       []domain.CartEntry
	pending    []domain.PendingEntry
	purchases  []domain.PurchaseRecord
	requests   map[int64]int
	handled    [][]string
	decrements []int64

	addErr       error
	decrementErr error
	taskErr      error
}

func newMemoryStore(tasks ...domain.Task) *memoryStore {
	s := &memoryStore{tasks: make(map[int64]domain.Task), requests: make(map[int64]int)}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	return s
}

func (s *memoryStore) ActiveTasks(context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for id := int64(0); id < 100; id++ {
		if task, ok := s.tasks[id]; ok && task.Amount > 0 {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *memoryStore) Task(_ context.Context, id int64) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskErr != nil {
		return domain.Task{}, s.taskErr
	}
	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *memoryStore) DecrementAmount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decrements = append(s.decrements, id)
	if s.decrementErr != nil {
		return s.decrementErr
	}
	task := s.tasks[id]
	task.Amount--
	s.tasks[id] = task
	return nil
}

func (s *memoryStore) AddToCart(_ context.Context, entries []domain.CartEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.cart = append(s.cart, entries...)
	return nil
}

func (s *memoryStore) PendingCart(context.Context) ([]domain.PendingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PendingEntry(nil), s.pending...), nil
}

func (s *memoryStore) MarkHandled(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, ids)
	return nil
}

func (s *memoryStore) SavePurchase(_ context.Context, record domain.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, record)
	return nil
}

func (s *memoryStore) LogRequests(_ context.Context, taskID int64, pages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[taskID] += pages
	return nil
}

// fakeFetcher answers per task id.
type fakeFetcher struct {
	mu       sync.Mutex
	listings map[int64]map[string]domain.Listing
	errs     map[int64]error
	calls    []int64
}

func (f *fakeFetcher) FetchPages(_ context.Context, task domain.Task) (map[string]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, task.ID)
	if err := f.errs[task.ID]; err != nil {
		return nil, err
	}
	return f.listings[task.ID], nil
}

// fakePages answers per currency for the rate sampler.
type fakePages struct {
	byCurrency map[int]map[string]domain.Listing
	err        error
	queries    []domain.PageQuery
}

func (f *fakePages) FetchPage(_ context.Context, _ string, page domain.PageQuery) (map[string]domain.Listing, error) {
	f.queries = append(f.queries, page)
	if f.err != nil {
		return nil, f.err
	}
	return f.byCurrency[page.Currency], nil
}

// fakeInspector returns results keyed by listing id.
type fakeInspector struct {
	results map[string]domain.InspectionResult
	err     error
	batches [][]domain.InspectTarget
}

func (f *fakeInspector) Inspect(_ context.Context, targets []domain.InspectTarget) ([]domain.InspectionResult, error) {
	f.batches = append(f.batches, targets)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.InspectionResult
	for _, target := range targets {
		if result, ok := f.results[target.ListingID]; ok {
			out = append(out, result)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

type recordingMetrics struct {
	mu          sync.Mutex
	pages       int
	rateLimited int
	inspections int
	cartAdded   int
	outcomes    []string
	rate        float64
}

func (m *recordingMetrics) PagesRequested(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages += n
}

func (m *recordingMetrics) RateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited++
}

func (m *recordingMetrics) InspectionFailures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspections += n
}

func (m *recordingMetrics) CartEntriesAdded(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartAdded += n
}

func (m *recordingMetrics) PurchaseAttempt(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ExchangeRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

// purchaseReply is what fakePurchaser answers for a listing.
type purchaseReply struct {
	receipt domain.Receipt
	err     error
}

type fakePurchaser struct {
	replies map[string]purchaseReply
	orders  []domain.Order
}

func (f *fakePurchaser) Purchase(_ context.Context, session domain.Session, order domain.Order) (domain.Receipt, error) {
	if !session.Valid() {
		return domain.Receipt{}, domain.ErrSessionExpired
	}
	f.orders = append(f.orders, order)
	reply, ok := f.replies[order.ListingID]
	if !ok {
		return domain.Receipt{Confirmed: true, WalletBalance: 10000}, nil
	}
	return reply.receipt, reply.err
}

type fakeSessions struct {
	session     domain.Session
	err         error
	invalidated int
}

func (f *fakeSessions) Session(context.Context) (domain.Session, error) {
	return f.session, f.err
}

func (f *fakeSessions) Invalidate() { f.invalidated++ }

// sleepRecorder records requested delays and cancels after a number of calls.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	cancel context.CancelFunc
	stopAt int
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	stop := s.stopAt > 0 && len(s.delays) >= s.stopAt
	s.mu.Unlock()
	if stop && s.cancel != nil {
		s.cancel()
	}
	return ctx.Err()
}

var errBoom = errors.New("boom")
