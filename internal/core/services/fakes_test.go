package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	m := make(map[string]*domain.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ListReminderUsers(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.DailyReminder && u.Status == domain.UserActive {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeConvRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.Conversation
	byKey map[string]*domain.Conversation

	// When set, CreateConversation loses the race: the winner is installed
	// under the pair key and the create reports a duplicate.
	raceWinner *domain.Conversation

	// When set, pair-key lookups for keys that exist fail with this error.
	refetchErr error
}

func newFakeConvRepo(convs ...*domain.Conversation) *fakeConvRepo {
	r := &fakeConvRepo{
		byID:  make(map[uuid.UUID]*domain.Conversation),
		byKey: make(map[string]*domain.Conversation),
	}
	for _, c := range convs {
		r.byID[c.ID] = c
		r.byKey[c.PairKey] = c
	}
	return r
}

func (r *fakeConvRepo) GetConversationByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *fakeConvRepo) GetConversationByPairKey(_ context.Context, key string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.refetchErr != nil {
		return nil, r.refetchErr
	}
	return c, nil
}

func (r *fakeConvRepo) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raceWinner != nil {
		r.byID[r.raceWinner.ID] = r.raceWinner
		r.byKey[r.raceWinner.PairKey] = r.raceWinner
		return domain.ErrDuplicateRecord
	}
	if _, ok := r.byKey[conv.PairKey]; ok {
		return domain.ErrDuplicateRecord
	}
	r.byID[conv.ID] = conv
	r.byKey[conv.PairKey] = conv
	return nil
}

func (r *fakeConvRepo) UpdateLastMessage(_ context.Context, convID, messageID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[convID]
	if !ok {
		return domain.ErrNotFound
	}
	id := messageID
	c.LastMessageID = &id
	c.UpdatedAt = at
	return nil
}

func (r *fakeConvRepo) ListConversationsByParticipant(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ConversationSummary
	for _, c := range r.byID {
		if c.HasParticipant(userID) {
			out = append(out, domain.ConversationSummary{Conversation: *c})
		}
	}
	return out, nil
}

func (r *fakeConvRepo) DeleteConversation(_ context.Context, convID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[convID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, convID)
	delete(r.byKey, c.PairKey)
	return nil
}

type fakeMsgRepo struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func (r *fakeMsgRepo) CreateMessage(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *fakeMsgRepo) GetMessageByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListMessagesBefore walks the insertion-ordered slice backwards, honoring the
// cursor, so it behaves like the real newest-first page query.
func (r *fakeMsgRepo) ListMessagesBefore(_ context.Context, convID uuid.UUID, limit int, cursor *uuid.UUID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end := len(r.msgs)
	if cursor != nil {
		for i, m := range r.msgs {
			if m.ID == *cursor {
				end = i
				break
			}
		}
	}
	var out []domain.Message
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		if r.msgs[i].ConversationID == convID {
			out = append(out, *r.msgs[i])
		}
	}
	return out, nil
}

type fakeStatusRepo struct {
	mu     sync.Mutex
	states map[string]domain.DeliveryState
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{states: make(map[string]domain.DeliveryState)}
}

func statusKey(messageID uuid.UUID, userID string) string {
	return messageID.String() + "/" + userID
}

func (r *fakeStatusRepo) UpsertStatus(_ context.Context, messageID uuid.UUID, userID string, state domain.DeliveryState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := statusKey(messageID, userID)
	if cur, ok := r.states[key]; ok && cur.Rank() >= state.Rank() {
		return nil
	}
	r.states[key] = state
	return nil
}

func (r *fakeStatusRepo) GetStatus(_ context.Context, messageID uuid.UUID, userID string) (domain.DeliveryState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[statusKey(messageID, userID)]
	if !ok {
		return "", domain.ErrNotFound
	}
	return state, nil
}

type fakeCallRepo struct {
	mu           sync.Mutex
	calls        map[uuid.UUID]*domain.Call
	participants map[string]*domain.CallParticipant
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{
		calls:        make(map[uuid.UUID]*domain.Call),
		participants: make(map[string]*domain.CallParticipant),
	}
}

func participantKey(callID uuid.UUID, userID string) string {
	return callID.String() + "/" + userID
}

func (r *fakeCallRepo) CreateCall(_ context.Context, call *domain.Call, participantIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[call.ID] = call
	for _, uid := range participantIDs {
		r.participants[participantKey(call.ID, uid)] = &domain.CallParticipant{
			CallID: call.ID,
			UserID: uid,
			Status: domain.ParticipantMissed,
		}
	}
	return nil
}

func (r *fakeCallRepo) GetCallByID(_ context.Context, callID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCallRepo) GetParticipant(_ context.Context, callID uuid.UUID, userID string) (*domain.CallParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantKey(callID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	pp := *p
	return &pp, nil
}

func (r *fakeCallRepo) ListParticipants(_ context.Context, callID uuid.UUID) ([]domain.CallParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CallParticipant
	for _, p := range r.participants {
		if p.CallID == callID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeCallRepo) UpdateParticipant(_ context.Context, p *domain.CallParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[participantKey(p.CallID, p.UserID)] = p
	return nil
}

func (r *fakeCallRepo) UpdateCallStatus(_ context.Context, callID uuid.UUID, status domain.CallStatus, endedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	if endedAt != nil {
		c.EndedAt = endedAt
	}
	return nil
}

type fakeNotifRepo struct {
	mu         sync.Mutex
	byRecord   map[string]*domain.Notification
	recipients map[uuid.UUID][]*domain.NotificationRecipient
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{
		byRecord:   make(map[string]*domain.Notification),
		recipients: make(map[uuid.UUID][]*domain.NotificationRecipient),
	}
}

func recordKey(recordType, recordID string) string {
	return recordType + "/" + recordID
}

func (r *fakeNotifRepo) GetByRecord(_ context.Context, recordType, recordID string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byRecord[recordKey(recordType, recordID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return n, nil
}

func (r *fakeNotifRepo) CreateNotification(_ context.Context, n *domain.Notification, recipientIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(n.RecordType, n.RecordID)
	if _, ok := r.byRecord[key]; ok {
		return domain.ErrDuplicateRecord
	}
	r.byRecord[key] = n
	for _, uid := range recipientIDs {
		r.recipients[n.ID] = append(r.recipients[n.ID], &domain.NotificationRecipient{
			NotificationID: n.ID,
			UserID:         uid,
		})
	}
	return nil
}

func (r *fakeNotifRepo) ListByRecipient(_ context.Context, userID string) ([]domain.Notification, []domain.NotificationRecipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		notifs []domain.Notification
		reads  []domain.NotificationRecipient
	)
	for _, n := range r.byRecord {
		for _, rec := range r.recipients[n.ID] {
			if rec.UserID == userID {
				notifs = append(notifs, *n)
				reads = append(reads, *rec)
			}
		}
	}
	return notifs, reads, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, notificationID uuid.UUID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipients[notificationID] {
		if rec.UserID == userID {
			rec.Read = true
			now := time.Now()
			rec.ReadAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence(onlineUsers ...string) *fakePresence {
	m := make(map[string]bool)
	for _, u := range onlineUsers {
		m[u] = true
	}
	return &fakePresence{online: m}
}

func (p *fakePresence) Online(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePresence) setOnline(userID string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = on
}

type pushedEvent struct {
	UserID string
	Event  domain.Event
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []pushedEvent
}

func (p *fakePusher) PushToUser(_ context.Context, userID string, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, pushedEvent{UserID: userID, Event: event})
}

func (p *fakePusher) events() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pushedEvent, len(p.pushed))
	copy(out, p.pushed)
	return out
}

func (p *fakePusher) eventsFor(userID string) []pushedEvent {
	var out []pushedEvent
	for _, e := range p.events() {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type enqueuedJob struct {
	JobKey  string
	Payload []byte
}

type fakeQueue struct {
	mu       sync.Mutex
	seen     map[string]bool
	enqueued []enqueuedJob
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{seen: make(map[string]bool)}
}

func (q *fakeQueue) Enqueue(_ context.Context, jobKey string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen[jobKey] {
		return nil
	}
	q.seen[jobKey] = true
	q.enqueued = append(q.enqueued, enqueuedJob{JobKey: jobKey, Payload: payload})
	return nil
}

func (q *fakeQueue) Subscribe(context.Context, string, func(ctx context.Context, jobID string, payload []byte) error) error {
	return nil
}

func (q *fakeQueue) Acknowledge(context.Context, string, string) error { return nil }

func (q *fakeQueue) Bury(context.Context, string, []byte) error { return nil }

func (q *fakeQueue) jobs() []enqueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]enqueuedJob, len(q.enqueued))
	copy(out, q.enqueued)
	return out
}

type sentEmail struct {
	To, Subject, Body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

type sentSMS struct {
	To, Body string
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (s *fakeSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentSMS{To: to, Body: body})
	return nil
}
