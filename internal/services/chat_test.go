package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/realtime"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeParticipantRepo struct {
	repos.ParticipantRepo
	byID map[uuid.UUID]*types.Participant
}

func (f *fakeParticipantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Participant, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMessageRepo struct {
	repos.MessageRepo
	created []*types.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) error {
	f.created = append(f.created, message)
	return nil
}

type publishedEvent struct {
	scopeID uuid.UUID
	event   string
	data    any
}

type fakePublisher struct {
	subgroup []publishedEvent
	session  []publishedEvent
}

func (f *fakePublisher) PublishToSubgroup(ctx context.Context, subgroupID uuid.UUID, event string, data any) error {
	f.subgroup = append(f.subgroup, publishedEvent{scopeID: subgroupID, event: event, data: data})
	return nil
}

func (f *fakePublisher) PublishToSession(ctx context.Context, sessionID uuid.UUID, event string, data any) error {
	f.session = append(f.session, publishedEvent{scopeID: sessionID, event: event, data: data})
	return nil
}

func TestHandleChatMessageBlankContent(t *testing.T) {
	log := mustTestLogger(t)
	messages := &fakeMessageRepo{}
	pub := &fakePublisher{}
	cs := NewChatService(nil, log, &fakeParticipantRepo{}, messages, pub)

	if err := cs.HandleChatMessage(context.Background(), uuid.New(), uuid.New(), "   \n"); err != nil {
		t.Fatalf("HandleChatMessage: %v", err)
	}
	if len(messages.created) != 0 || len(pub.subgroup) != 0 {
		t.Fatalf("expected blank message to be dropped")
	}
}

func TestHandleChatMessageUnknownSender(t *testing.T) {
	log := mustTestLogger(t)
	messages := &fakeMessageRepo{}
	pub := &fakePublisher{}
	cs := NewChatService(nil, log, &fakeParticipantRepo{byID: map[uuid.UUID]*types.Participant{}}, messages, pub)

	if err := cs.HandleChatMessage(context.Background(), uuid.New(), uuid.New(), "hello"); err != nil {
		t.Fatalf("expected unknown sender to be dropped, got %v", err)
	}
	if len(messages.created) != 0 || len(pub.subgroup) != 0 {
		t.Fatalf("expected no side effects for unknown sender")
	}
}

func TestHandleChatMessagePersistsAndBroadcasts(t *testing.T) {
	log := mustTestLogger(t)
	participantID := uuid.New()
	subgroupID := uuid.New()
	participants := &fakeParticipantRepo{byID: map[uuid.UUID]*types.Participant{
		participantID: {ID: participantID, DisplayName: "alice"},
	}}
	messages := &fakeMessageRepo{}
	pub := &fakePublisher{}
	cs := NewChatService(nil, log, participants, messages, pub)

	if err := cs.HandleChatMessage(context.Background(), participantID, subgroupID, "  hello there  "); err != nil {
		t.Fatalf("HandleChatMessage: %v", err)
	}
	if len(messages.created) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(messages.created))
	}
	msg := messages.created[0]
	if msg.Content != "hello there" || msg.MsgType != types.MessageTypeHuman {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ParticipantID == nil || *msg.ParticipantID != participantID {
		t.Fatalf("message not attributed to sender")
	}

	if len(pub.subgroup) != 1 || pub.subgroup[0].event != realtime.EventNewMessage {
		t.Fatalf("expected one chat:new_message publish, got %+v", pub.subgroup)
	}
	payload, ok := pub.subgroup[0].data.(realtime.MessagePayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.subgroup[0].data)
	}
	if payload.DisplayName != "alice" || payload.UserID == nil || *payload.UserID != participantID.String() {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
