package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

func newTestMessageService(
	conv *fakeConvRepo,
	msgs *fakeMsgRepo,
	statuses *fakeStatusRepo,
	users *fakeUserRepo,
	presence *fakePresence,
	pusher *fakePusher,
) *MessageService {
	return NewMessageService(testLogger(), conv, msgs, statuses, users, presence, pusher, fakeTx{})
}

func seedConversation(userA, userB string) *domain.Conversation {
	now := time.Now()
	return &domain.Conversation{
		ID:             uuid.New(),
		PairKey:        domain.PairKey(userA, userB),
		ParticipantIDs: []string{userA, userB},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestFindOrCreateConversationCanonicalPair(t *testing.T) {
	convRepo := newFakeConvRepo()
	svc := newTestMessageService(convRepo, &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})
	ctx := context.Background()

	first, err := svc.FindOrCreateConversation(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.FindOrCreateConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("reversed lookup failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected both orderings to resolve to one conversation, got %s and %s", first.ID, second.ID)
	}
	if first.PairKey != "alice:bob" {
		t.Errorf("expected canonical pair key alice:bob, got %s", first.PairKey)
	}
}

func TestFindOrCreateConversationRejectsSelf(t *testing.T) {
	svc := newTestMessageService(newFakeConvRepo(), &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})

	_, err := svc.FindOrCreateConversation(context.Background(), "alice", "alice")
	if !errors.Is(err, domain.ErrSelfConversation) {
		t.Fatalf("expected self-conversation error, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("self-conversation error should carry the conflict sentinel")
	}
}

func TestFindOrCreateConversationLostRace(t *testing.T) {
	winner := seedConversation("alice", "bob")
	convRepo := newFakeConvRepo()
	convRepo.raceWinner = winner
	svc := newTestMessageService(convRepo, &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})

	got, err := svc.FindOrCreateConversation(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("lost race should converge on winner, got error: %v", err)
	}
	if got.ID != winner.ID {
		t.Errorf("expected winner conversation %s, got %s", winner.ID, got.ID)
	}
}

func TestFindOrCreateConversationRaceRefetchFailure(t *testing.T) {
	convRepo := newFakeConvRepo()
	convRepo.raceWinner = seedConversation("alice", "bob")
	convRepo.refetchErr = errors.New("connection reset")
	svc := newTestMessageService(convRepo, &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})

	_, err := svc.FindOrCreateConversation(context.Background(), "alice", "bob")
	if err == nil {
		t.Fatal("expected the failed refetch to surface")
	}
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("refetch failure should carry the persistence sentinel, got %v", err)
	}
}

func TestSendMessageOfflineRecipient(t *testing.T) {
	conv := seedConversation("alice", "bob")
	convRepo := newFakeConvRepo(conv)
	statuses := newFakeStatusRepo()
	pusher := &fakePusher{}
	users := newFakeUserRepo(&domain.User{ID: "alice", Name: "Alice", Status: domain.UserActive})
	svc := newTestMessageService(convRepo, &fakeMsgRepo{}, statuses, users, newFakePresence(), pusher)

	msg, err := svc.SendMessage(context.Background(), conv.ID, "alice", "hey", nil, domain.MessageText)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if state, _ := statuses.GetStatus(context.Background(), msg.ID, "alice"); state != domain.DeliveryRead {
		t.Errorf("sender status = %s, want READ", state)
	}
	if state, _ := statuses.GetStatus(context.Background(), msg.ID, "bob"); state != domain.DeliverySent {
		t.Errorf("offline recipient status = %s, want SENT", state)
	}
	// The push still goes out so a socket on another instance is reached;
	// only the status row reflects local absence.
	got := pusher.eventsFor("bob")
	if len(got) != 1 {
		t.Fatalf("expected one push for bob, got %d", len(got))
	}
	payload, ok := got[0].Event.Data.(domain.NewMessagePayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", got[0].Event.Data)
	}
	if payload.Status != domain.DeliverySent {
		t.Errorf("payload status = %s, want SENT", payload.Status)
	}
	if conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
		t.Errorf("last-message pointer not advanced")
	}
}

func TestSendMessageOnlineRecipient(t *testing.T) {
	conv := seedConversation("alice", "bob")
	statuses := newFakeStatusRepo()
	pusher := &fakePusher{}
	users := newFakeUserRepo(&domain.User{ID: "alice", Name: "Alice", Status: domain.UserActive})
	svc := newTestMessageService(newFakeConvRepo(conv), &fakeMsgRepo{}, statuses, users, newFakePresence("bob"), pusher)

	msg, err := svc.SendMessage(context.Background(), conv.ID, "alice", "hey", nil, domain.MessageText)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if state, _ := statuses.GetStatus(context.Background(), msg.ID, "bob"); state != domain.DeliveryDelivered {
		t.Errorf("online recipient status = %s, want DELIVERED", state)
	}
	got := pusher.eventsFor("bob")
	if len(got) != 1 {
		t.Fatalf("expected one push to bob, got %d", len(got))
	}
	if got[0].Event.Event != domain.EventNewMessage {
		t.Errorf("pushed event = %s, want %s", got[0].Event.Event, domain.EventNewMessage)
	}
	payload, ok := got[0].Event.Data.(domain.NewMessagePayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", got[0].Event.Data)
	}
	if payload.SenderName != "Alice" {
		t.Errorf("sender name = %q, want Alice", payload.SenderName)
	}
	if payload.Status != domain.DeliveryDelivered {
		t.Errorf("payload status = %s, want DELIVERED", payload.Status)
	}
}

func TestSendMessageNonParticipantForbidden(t *testing.T) {
	conv := seedConversation("alice", "bob")
	svc := newTestMessageService(newFakeConvRepo(conv), &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})

	_, err := svc.SendMessage(context.Background(), conv.ID, "mallory", "hi", nil, domain.MessageText)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListMessagesPagination(t *testing.T) {
	conv := seedConversation("alice", "bob")
	msgRepo := &fakeMsgRepo{}
	svc := newTestMessageService(newFakeConvRepo(conv), msgRepo, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		m := &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       "alice",
			Content:        "m",
			Type:           domain.MessageText,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := msgRepo.CreateMessage(ctx, m); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		ids = append(ids, m.ID)
	}

	// First page: newest three, returned chronologically.
	page, err := svc.ListMessages(ctx, conv.ID, "bob", 3, nil)
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("first page size = %d, want 3", len(page))
	}
	for i, want := range []uuid.UUID{ids[7], ids[8], ids[9]} {
		if page[i].ID != want {
			t.Errorf("first page[%d] = %s, want %s", i, page[i].ID, want)
		}
	}

	// Second page: strictly older than the oldest of the first.
	cursor := page[0].ID
	page2, err := svc.ListMessages(ctx, conv.ID, "bob", 3, &cursor)
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(page2) != 3 {
		t.Fatalf("second page size = %d, want 3", len(page2))
	}
	for i, want := range []uuid.UUID{ids[4], ids[5], ids[6]} {
		if page2[i].ID != want {
			t.Errorf("second page[%d] = %s, want %s", i, page2[i].ID, want)
		}
	}
}

func TestListMessagesNonParticipantForbidden(t *testing.T) {
	conv := seedConversation("alice", "bob")
	svc := newTestMessageService(newFakeConvRepo(conv), &fakeMsgRepo{}, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})

	_, err := svc.ListMessages(context.Background(), conv.ID, "mallory", 10, nil)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMarkReadNotifiesSenderAndStaysIdempotent(t *testing.T) {
	conv := seedConversation("alice", "bob")
	msgRepo := &fakeMsgRepo{}
	statuses := newFakeStatusRepo()
	pusher := &fakePusher{}
	svc := newTestMessageService(newFakeConvRepo(conv), msgRepo, statuses, newFakeUserRepo(), newFakePresence(), pusher)
	ctx := context.Background()

	msg := &domain.Message{ID: uuid.New(), ConversationID: conv.ID, SenderID: "alice", Content: "hey", Type: domain.MessageText, CreatedAt: time.Now()}
	if err := msgRepo.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := svc.MarkRead(ctx, msg.ID, "bob"); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if state, _ := statuses.GetStatus(ctx, msg.ID, "bob"); state != domain.DeliveryRead {
		t.Errorf("status = %s, want READ", state)
	}
	alice := pusher.eventsFor("alice")
	if len(alice) != 1 || alice[0].Event.Event != domain.EventMessageStatus {
		t.Fatalf("expected one message.status push to sender, got %+v", alice)
	}

	// Second read is a no-op, not an error.
	if err := svc.MarkRead(ctx, msg.ID, "bob"); err != nil {
		t.Fatalf("repeated mark read errored: %v", err)
	}
	if state, _ := statuses.GetStatus(ctx, msg.ID, "bob"); state != domain.DeliveryRead {
		t.Errorf("status regressed after repeat")
	}
}

func TestMarkReadNonParticipantForbidden(t *testing.T) {
	conv := seedConversation("alice", "bob")
	msgRepo := &fakeMsgRepo{}
	svc := newTestMessageService(newFakeConvRepo(conv), msgRepo, newFakeStatusRepo(), newFakeUserRepo(), newFakePresence(), &fakePusher{})
	ctx := context.Background()

	msg := &domain.Message{ID: uuid.New(), ConversationID: conv.ID, SenderID: "alice", Type: domain.MessageText, CreatedAt: time.Now()}
	if err := msgRepo.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := svc.MarkRead(ctx, msg.ID, "mallory"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

// Offline send, later pull, read receipt: the full messaging round trip.
func TestOfflineSendThenPullThenRead(t *testing.T) {
	users := newFakeUserRepo(
		&domain.User{ID: "coach", Name: "Coach", Status: domain.UserActive},
		&domain.User{ID: "client", Name: "Client", Status: domain.UserActive},
	)
	presence := newFakePresence("coach")
	statuses := newFakeStatusRepo()
	pusher := &fakePusher{}
	msgRepo := &fakeMsgRepo{}
	convRepo := newFakeConvRepo()
	svc := newTestMessageService(convRepo, msgRepo, statuses, users, presence, pusher)
	ctx := context.Background()

	conv, err := svc.FindOrCreateConversation(ctx, "coach", "client")
	if err != nil {
		t.Fatalf("find-or-create failed: %v", err)
	}
	msg, err := svc.SendMessage(ctx, conv.ID, "coach", "session tomorrow 9am", nil, domain.MessageText)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if state, _ := statuses.GetStatus(ctx, msg.ID, "client"); state != domain.DeliverySent {
		t.Fatalf("offline client status = %s, want SENT", state)
	}

	// Client reconnects and pulls history.
	presence.setOnline("client", true)
	page, err := svc.ListMessages(ctx, conv.ID, "client", 50, nil)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != msg.ID {
		t.Fatalf("pull returned wrong page: %+v", page)
	}

	if err := svc.MarkRead(ctx, msg.ID, "client"); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if state, _ := statuses.GetStatus(ctx, msg.ID, "client"); state != domain.DeliveryRead {
		t.Errorf("final status = %s, want READ", state)
	}
	coach := pusher.eventsFor("coach")
	if len(coach) != 1 || coach[0].Event.Event != domain.EventMessageStatus {
		t.Errorf("sender should see one read receipt, got %+v", coach)
	}
}
