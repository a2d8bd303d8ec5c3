package services

import (
	"context"
	"strings"
	"testing"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMessageService(msgRepo *repository.MockMessageRepository, convRepo *repository.MockConversationRepository) *MessageService {
	return NewMessageService(nil, msgRepo, convRepo, 0)
}

func activeConversation(id uuid.UUID) conversation.Conversation {
	return conversation.Conversation{
		ID:         id,
		PracticeID: uuid.New(),
		Status:     conversation.StatusActive,
	}
}

func TestAppendValidation(t *testing.T) {
	convID := uuid.New()
	sender := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	tests := []struct {
		name    string
		input   AppendMessageInput
		wantErr error
	}{
		{
			name:    "empty content",
			input:   AppendMessageInput{ConversationID: convID, SenderID: sender, Role: message.RoleUser, Content: ""},
			wantErr: intake_errors.ErrInvalidInput,
		},
		{
			name:    "whitespace content",
			input:   AppendMessageInput{ConversationID: convID, SenderID: sender, Role: message.RoleUser, Content: "   \n\t "},
			wantErr: intake_errors.ErrInvalidInput,
		},
		{
			name:    "oversized content",
			input:   AppendMessageInput{ConversationID: convID, SenderID: sender, Role: message.RoleUser, Content: strings.Repeat("x", DefaultMaxContentBytes+1)},
			wantErr: intake_errors.ErrTooLarge,
		},
		{
			name:    "unknown role",
			input:   AppendMessageInput{ConversationID: convID, SenderID: sender, Role: "ADMIN", Content: "hello"},
			wantErr: intake_errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestMessageService(new(repository.MockMessageRepository), new(repository.MockConversationRepository))
			_, err := svc.Append(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	convID := uuid.New()
	senderID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	convRepo.On("GetByID", mock.Anything, convID).Return(activeConversation(convID), nil)
	convRepo.On("IncrementSequence", mock.Anything, convID).Return(int64(7), nil)
	msgRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *message.Message) bool {
		return m.ConversationID == convID && m.SeqID == 7 && m.Content == "hello" && m.ID != uuid.Nil
	})).Return(nil)
	convRepo.On("TouchLastMessage", mock.Anything, convID, mock.Anything).Return(nil)

	msg, err := svc.Append(context.Background(), AppendMessageInput{
		ConversationID: convID,
		SenderID:       uuid.NullUUID{UUID: senderID, Valid: true},
		Role:           message.RoleUser,
		Content:        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.SeqID)
	assert.Equal(t, convID, msg.ConversationID)
	assert.Equal(t, "{}", msg.Metadata)

	msgRepo.AssertExpectations(t)
	convRepo.AssertExpectations(t)
}

// Sequence numbers come from the repository's atomic counter, once per
// append, never cached or recomputed; two appends must carry the two
// distinct values the counter handed out.
func TestAppendSequencesAreRepositoryOwned(t *testing.T) {
	convID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	convRepo.On("GetByID", mock.Anything, convID).Return(activeConversation(convID), nil)
	convRepo.On("IncrementSequence", mock.Anything, convID).Return(int64(7), nil).Once()
	convRepo.On("IncrementSequence", mock.Anything, convID).Return(int64(8), nil).Once()
	msgRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	convRepo.On("TouchLastMessage", mock.Anything, convID, mock.Anything).Return(nil)

	in := AppendMessageInput{
		ConversationID: convID,
		SenderID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Role:           message.RoleUser,
		Content:        "first",
	}
	first, err := svc.Append(context.Background(), in)
	require.NoError(t, err)
	in.Content = "second"
	second, err := svc.Append(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(7), first.SeqID)
	assert.Equal(t, int64(8), second.SeqID)
	convRepo.AssertNumberOfCalls(t, "IncrementSequence", 2)
}

func TestAppendRejectsClosedConversation(t *testing.T) {
	convID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	closed := activeConversation(convID)
	closed.Status = conversation.StatusClosed
	convRepo.On("GetByID", mock.Anything, convID).Return(closed, nil)

	_, err := svc.Append(context.Background(), AppendMessageInput{
		ConversationID: convID,
		SenderID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Role:           message.RoleUser,
		Content:        "hello",
	})
	assert.ErrorIs(t, err, intake_errors.ErrConversationClosed)
	msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAppendReplyMustBeSameConversation(t *testing.T) {
	convID := uuid.New()
	otherConvID := uuid.New()
	parentID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	convRepo.On("GetByID", mock.Anything, convID).Return(activeConversation(convID), nil)
	msgRepo.On("GetByID", mock.Anything, parentID).Return(message.Message{
		ID:             parentID,
		ConversationID: otherConvID,
	}, nil)

	_, err := svc.Append(context.Background(), AppendMessageInput{
		ConversationID: convID,
		SenderID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Role:           message.RoleUser,
		Content:        "reply",
		ReplyToMsgID:   uuid.NullUUID{UUID: parentID, Valid: true},
	})
	assert.ErrorIs(t, err, intake_errors.ErrNotFound)
	msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAppendReplyParentMissing(t *testing.T) {
	convID := uuid.New()
	parentID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	convRepo.On("GetByID", mock.Anything, convID).Return(activeConversation(convID), nil)
	msgRepo.On("GetByID", mock.Anything, parentID).Return(message.Message{}, intake_errors.ErrNotFound)

	_, err := svc.Append(context.Background(), AppendMessageInput{
		ConversationID: convID,
		SenderID:       uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Role:           message.RoleUser,
		Content:        "reply",
		ReplyToMsgID:   uuid.NullUUID{UUID: parentID, Valid: true},
	})
	assert.ErrorIs(t, err, intake_errors.ErrNotFound)
}

func TestListPagination(t *testing.T) {
	convID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	page := []message.Message{
		{ID: uuid.New(), ConversationID: convID, SeqID: 1},
		{ID: uuid.New(), ConversationID: convID, SeqID: 2},
	}
	msgRepo.On("GetConversationMessages", mock.Anything, convID, int64(0), 2).Return(page, nil)

	messages, nextCursor, err := svc.List(context.Background(), convID, "", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.NotEmpty(t, nextCursor)

	// A full page yields a cursor pointing past its last message.
	seq, err := DecodeCursor(nextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestListPartialPageEndsCursor(t *testing.T) {
	convID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	page := []message.Message{{ID: uuid.New(), ConversationID: convID, SeqID: 3}}
	msgRepo.On("GetConversationMessages", mock.Anything, convID, int64(2), 5).Return(page, nil)

	messages, nextCursor, err := svc.List(context.Background(), convID, EncodeCursor(2), 5)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Empty(t, nextCursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc := newTestMessageService(new(repository.MockMessageRepository), new(repository.MockConversationRepository))
	_, _, err := svc.List(context.Background(), uuid.New(), "garbage!", 10)
	assert.ErrorIs(t, err, intake_errors.ErrInvalidInput)
}

func TestToggleReactionAddsWhenAbsent(t *testing.T) {
	convID := uuid.New()
	messageID := uuid.New()
	userID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	msgRepo.On("GetByID", mock.Anything, messageID).Return(message.Message{ID: messageID, ConversationID: convID}, nil)
	msgRepo.On("GetUserReaction", mock.Anything, messageID, userID, "👍").Return(message.MessageReaction{}, intake_errors.ErrNotFound)
	msgRepo.On("UpsertReaction", mock.Anything, mock.MatchedBy(func(r *message.MessageReaction) bool {
		return r.MessageID == messageID && r.UserID == userID && r.Emoji == "👍"
	})).Return(nil)
	msgRepo.On("GetMessageReactions", mock.Anything, messageID).Return([]message.MessageReaction{
		{MessageID: messageID, UserID: userID, Emoji: "👍"},
	}, nil)

	reactions, added, err := svc.ToggleReaction(context.Background(), convID, messageID, userID, "👍")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, reactions, 1)
	msgRepo.AssertExpectations(t)
}

func TestToggleReactionRemovesWhenPresent(t *testing.T) {
	convID := uuid.New()
	messageID := uuid.New()
	userID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	existing := message.MessageReaction{MessageID: messageID, UserID: userID, Emoji: "👍"}
	msgRepo.On("GetByID", mock.Anything, messageID).Return(message.Message{ID: messageID, ConversationID: convID}, nil)
	msgRepo.On("GetUserReaction", mock.Anything, messageID, userID, "👍").Return(existing, nil)
	msgRepo.On("RemoveReaction", mock.Anything, messageID, userID, "👍").Return(nil)
	msgRepo.On("GetMessageReactions", mock.Anything, messageID).Return([]message.MessageReaction{}, nil)

	reactions, added, err := svc.ToggleReaction(context.Background(), convID, messageID, userID, "👍")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, reactions)
	msgRepo.AssertExpectations(t)
}

func TestToggleReactionScopedToConversation(t *testing.T) {
	convID := uuid.New()
	messageID := uuid.New()

	msgRepo := new(repository.MockMessageRepository)
	convRepo := new(repository.MockConversationRepository)
	svc := newTestMessageService(msgRepo, convRepo)

	msgRepo.On("GetByID", mock.Anything, messageID).Return(message.Message{ID: messageID, ConversationID: uuid.New()}, nil)

	_, _, err := svc.ToggleReaction(context.Background(), convID, messageID, uuid.New(), "👍")
	assert.ErrorIs(t, err, intake_errors.ErrNotFound)
	msgRepo.AssertNotCalled(t, "UpsertReaction", mock.Anything, mock.Anything)
}

func TestToggleReactionValidatesEmoji(t *testing.T) {
	svc := newTestMessageService(new(repository.MockMessageRepository), new(repository.MockConversationRepository))

	_, _, err := svc.ToggleReaction(context.Background(), uuid.New(), uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, intake_errors.ErrInvalidInput)

	_, _, err = svc.ToggleReaction(context.Background(), uuid.New(), uuid.New(), uuid.New(), strings.Repeat("x", 9))
	assert.ErrorIs(t, err, intake_errors.ErrInvalidInput)
}
