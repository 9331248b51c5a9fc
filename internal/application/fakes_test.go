package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memTariffRepo struct {
	mu       sync.Mutex
	tables   map[domain.TariffKind]domain.RateTable
	replaces int
	failWith error
}

func newMemTariffRepo() *memTariffRepo {
	return &memTariffRepo{tables: map[domain.TariffKind]domain.RateTable{}}
}

func (r *memTariffRepo) Load(_ context.Context, kind domain.TariffKind) (domain.RateTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables[kind], nil
}

func (r *memTariffRepo) Replace(_ context.Context, kind domain.TariffKind, table domain.RateTable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.tables[kind] = table
	r.replaces++
	return nil
}

type memEventLog struct {
	mu         sync.Mutex
	events     []domain.AnalyticsEvent
	leads      []domain.Lead
	uploads    []domain.UploadRecord
	incomplete []domain.IncompleteSample
	failAppend error
}

func newMemEventLog() *memEventLog {
	return &memEventLog{}
}

func (l *memEventLog) AppendEvent(_ context.Context, event domain.AnalyticsEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAppend != nil {
		return l.failAppend
	}
	l.events = append(l.events, event)
	return nil
}

func (l *memEventLog) Events(context.Context) ([]domain.AnalyticsEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AnalyticsEvent(nil), l.events...), nil
}

func (l *memEventLog) AppendRecentLead(_ context.Context, lead domain.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leads = append(l.leads, lead)
	return nil
}

func (l *memEventLog) RecentLeads(_ context.Context, n int) ([]domain.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	leads := l.leads
	if n > 0 && len(leads) > n {
		leads = leads[len(leads)-n:]
	}
	return append([]domain.Lead(nil), leads...), nil
}

func (l *memEventLog) AppendRecentUpload(_ context.Context, upload domain.UploadRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uploads = append(l.uploads, upload)
	return nil
}

func (l *memEventLog) RecentUploads(_ context.Context, n int) ([]domain.UploadRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	uploads := l.uploads
	if n > 0 && len(uploads) > n {
		uploads = uploads[len(uploads)-n:]
	}
	return append([]domain.UploadRecord(nil), uploads...), nil
}

func (l *memEventLog) AppendIncomplete(_ context.Context, sample domain.IncompleteSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.incomplete = append(l.incomplete, sample)
	return nil
}

func (l *memEventLog) IncompleteSamples(context.Context) ([]domain.IncompleteSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.IncompleteSample(nil), l.incomplete...), nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]domain.Session{}}
}

func (s *memSessionStore) Get(_ context.Context, userID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

func (s *memSessionStore) Put(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = *session
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *memSessionStore) Close() error { return nil }

type recordingTransport struct {
	mu       sync.Mutex
	messages []string
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{}
}

func (t *recordingTransport) SendMessage(_ context.Context, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, text)
	return nil
}

func (t *recordingTransport) EditMessage(context.Context, string, string, string) error { return nil }
func (t *recordingTransport) AnswerCallback(context.Context, string, string) error     { return nil }

func (t *recordingTransport) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return ""
	}
	return t.messages[len(t.messages)-1]
}

func (t *recordingTransport) All() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.messages...)
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
	failWith      error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{}
}

func (n *recordingNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *recordingNotifier) All() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.notifications...)
}

type memNotificationHistory struct {
	mu       sync.Mutex
	sent     map[domain.NotificationKey]struct{}
	markings int
	prunes   int
}

func newMemNotificationHistory() *memNotificationHistory {
	return &memNotificationHistory{sent: map[domain.NotificationKey]struct{}{}}
}

func (h *memNotificationHistory) WasSent(_ context.Context, key domain.NotificationKey) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sent[key]
	return ok, nil
}

func (h *memNotificationHistory) MarkSent(_ context.Context, key domain.NotificationKey) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[key] = struct{}{}
	h.markings++
	return nil
}

func (h *memNotificationHistory) Prune(_ context.Context, relativeTo time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prunes++
	for key := range h.sent {
		day, err := time.Parse(domain.NotificationDayFormat, key.Day)
		if err != nil {
			continue
		}
		if relativeTo.Sub(day).Hours() > 30*24 {
			delete(h.sent, key)
		}
	}
	return nil
}

var errBoom = errors.New("boom")

var (
	_ ports.TariffRepository    = (*memTariffRepo)(nil)
	_ ports.EventLog            = (*memEventLog)(nil)
	_ ports.SessionStore        = (*memSessionStore)(nil)
	_ ports.Transport           = (*recordingTransport)(nil)
	_ ports.OperatorNotifier    = (*recordingNotifier)(nil)
	_ ports.NotificationHistory = (*memNotificationHistory)(nil)
)
