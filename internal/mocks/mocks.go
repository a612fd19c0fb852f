package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/handlers"
	"realtime-chat/internal/models"
)

var (
	_ handlers.UserService         = (*UserServiceMock)(nil)
	_ handlers.ConversationService = (*ConversationServiceMock)(nil)
	_ handlers.MessageService      = (*MessageServiceMock)(nil)
	_ handlers.PresenceService     = (*PresenceServiceMock)(nil)
	_ handlers.BlockService        = (*BlockServiceMock)(nil)
)

type UserServiceMock struct {
	mock.Mock
}

func (m *UserServiceMock) SyncUser(ctx context.Context, caller chat.Identity, name, avatarURL string) (*string, error) {
	args := m.Called(ctx, caller, name, avatarURL)
	var id *string
	if val := args.Get(0); val != nil {
		id = val.(*string)
	}
	return id, args.Error(1)
}

func (m *UserServiceMock) CurrentUser(ctx context.Context, caller chat.Identity) (*models.User, error) {
	args := m.Called(ctx, caller)
	var user *models.User
	if val := args.Get(0); val != nil {
		user = val.(*models.User)
	}
	return user, args.Error(1)
}

func (m *UserServiceMock) SearchUsers(ctx context.Context, caller chat.Identity, search string) ([]models.User, error) {
	args := m.Called(ctx, caller, search)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ConversationServiceMock struct {
	mock.Mock
}

func (m *ConversationServiceMock) GetOrCreateDirect(ctx context.Context, caller chat.Identity, otherUserID string) (string, error) {
	args := m.Called(ctx, caller, otherUserID)
	return args.String(0), args.Error(1)
}

func (m *ConversationServiceMock) CreateGroup(ctx context.Context, caller chat.Identity, name string, memberIDs []string) (string, error) {
	args := m.Called(ctx, caller, name, memberIDs)
	return args.String(0), args.Error(1)
}

func (m *ConversationServiceMock) ListConversations(ctx context.Context, caller chat.Identity) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, caller)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationServiceMock) LeaveGroup(ctx context.Context, caller chat.Identity, conversationID string) error {
	args := m.Called(ctx, caller, conversationID)
	return args.Error(0)
}

func (m *ConversationServiceMock) DeleteConversation(ctx context.Context, caller chat.Identity, conversationID string) error {
	args := m.Called(ctx, caller, conversationID)
	return args.Error(0)
}

type MessageServiceMock struct {
	mock.Mock
}

func (m *MessageServiceMock) ListMessages(ctx context.Context, caller chat.Identity, conversationID string) ([]models.MessageView, error) {
	args := m.Called(ctx, caller, conversationID)
	var views []models.MessageView
	if val := args.Get(0); val != nil {
		views = val.([]models.MessageView)
	}
	return views, args.Error(1)
}

func (m *MessageServiceMock) SendMessage(ctx context.Context, caller chat.Identity, in chat.SendMessageInput) (string, error) {
	args := m.Called(ctx, caller, in)
	return args.String(0), args.Error(1)
}

func (m *MessageServiceMock) SoftDeleteMessage(ctx context.Context, caller chat.Identity, messageID string) error {
	args := m.Called(ctx, caller, messageID)
	return args.Error(0)
}

func (m *MessageServiceMock) ToggleReaction(ctx context.Context, caller chat.Identity, messageID, emoji string) (bool, error) {
	args := m.Called(ctx, caller, messageID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *MessageServiceMock) MarkConversationRead(ctx context.Context, caller chat.Identity, conversationID string) error {
	args := m.Called(ctx, caller, conversationID)
	return args.Error(0)
}

type PresenceServiceMock struct {
	mock.Mock
}

func (m *PresenceServiceMock) Heartbeat(ctx context.Context, caller chat.Identity) error {
	args := m.Called(ctx, caller)
	return args.Error(0)
}

func (m *PresenceServiceMock) OnlineUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *PresenceServiceMock) SetTyping(ctx context.Context, caller chat.Identity, conversationID string, isTyping bool) error {
	args := m.Called(ctx, caller, conversationID, isTyping)
	return args.Error(0)
}

func (m *PresenceServiceMock) TypingForConversation(ctx context.Context, caller chat.Identity, conversationID string) ([]models.TypingUser, error) {
	args := m.Called(ctx, caller, conversationID)
	var users []models.TypingUser
	if val := args.Get(0); val != nil {
		users = val.([]models.TypingUser)
	}
	return users, args.Error(1)
}

type BlockServiceMock struct {
	mock.Mock
}

func (m *BlockServiceMock) ToggleBlock(ctx context.Context, caller chat.Identity, otherUserID string) (bool, error) {
	args := m.Called(ctx, caller, otherUserID)
	return args.Bool(0), args.Error(1)
}

func (m *BlockServiceMock) BlockedUsers(ctx context.Context, caller chat.Identity) ([]string, error) {
	args := m.Called(ctx, caller)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *BlockServiceMock) CheckIfBlocked(ctx context.Context, caller chat.Identity, otherUserID string) (models.BlockStatus, error) {
	args := m.Called(ctx, caller, otherUserID)
	var status models.BlockStatus
	if val := args.Get(0); val != nil {
		status = val.(models.BlockStatus)
	}
	return status, args.Error(1)
}
