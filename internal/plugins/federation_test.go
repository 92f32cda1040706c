//go:build !integration

package plugins

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/infra/mongo"
)

type mockSender struct {
	sent []string
}

func (m *mockSender) SendText(ctx context.Context, chatID int64, text string, replyTo int, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.sent = append(m.sent, text)
	return tgbotapi.Message{}, nil
}

func (m *mockSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return nil
}

type keyTexter struct{}

func (keyTexter) Text(lang, key string, args ...interface{}) string { return key }

type mockFedRepo struct {
	GetFunc       func(ctx context.Context, fid string) (*mongo.Federation, error)
	GetByChatFunc func(ctx context.Context, chatID int64) (*mongo.Federation, error)
	JoinChatFunc  func(ctx context.Context, fid string, chatID int64) error
}

func (m *mockFedRepo) Create(ctx context.Context, name string, owner int64) (*mongo.Federation, error) {
	return nil, derror.ErrNotFound
}

func (m *mockFedRepo) Delete(ctx context.Context, fid string) (*mongo.Federation, error) {
	return nil, derror.ErrNotFound
}

func (m *mockFedRepo) Get(ctx context.Context, fid string) (*mongo.Federation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, fid)
	}
	return nil, derror.ErrNotFound
}

func (m *mockFedRepo) GetByChat(ctx context.Context, chatID int64) (*mongo.Federation, error) {
	if m.GetByChatFunc != nil {
		return m.GetByChatFunc(ctx, chatID)
	}
	return nil, derror.ErrNotFound
}

func (m *mockFedRepo) GetByOwner(ctx context.Context, userID int64) (*mongo.Federation, error) {
	return nil, derror.ErrNotFound
}

func (m *mockFedRepo) JoinChat(ctx context.Context, fid string, chatID int64) error {
	if m.JoinChatFunc != nil {
		return m.JoinChatFunc(ctx, fid, chatID)
	}
	return nil
}

func (m *mockFedRepo) LeaveChat(ctx context.Context, fid string, chatID int64) error { return nil }
func (m *mockFedRepo) Promote(ctx context.Context, fid string, userID int64) error   { return nil }
func (m *mockFedRepo) Demote(ctx context.Context, fid string, userID int64) error    { return nil }

func (m *mockFedRepo) Ban(ctx context.Context, fid string, userID int64, ban mongo.FedBan) error {
	return nil
}

func (m *mockFedRepo) Unban(ctx context.Context, fid string, userID int64) error { return nil }

func (m *mockFedRepo) BansOf(ctx context.Context, userID int64) ([]*mongo.Federation, error) {
	return nil, nil
}

func (m *mockFedRepo) SetLog(ctx context.Context, fid string, chatID int64) error { return nil }
func (m *mockFedRepo) Migrate(ctx context.Context, oldID, newID int64) error      { return nil }

func newFedTestContext(args ...string) (*command.Context, *mockSender) {
	sender := &mockSender{}
	return &command.Context{
		Sender: sender,
		Texter: keyTexter{},
		Msg: &tgbotapi.Message{
			MessageID: 3,
			Chat:      &tgbotapi.Chat{ID: -100200, Type: "supergroup"},
			From:      &tgbotapi.User{ID: 7},
		},
		Args: args,
		Lang: "en",
	}, sender
}

func newFedTestPlugin(feds mongo.FedRepository) *federationPlugin {
	log := zerolog.Nop()
	b := bot.New(&config.Config{}, nil, nil, bot.Repos{Feds: feds}, nil, nil, &log)
	return &federationPlugin{bot: b}
}

func TestJoinFed(t *testing.T) {
	ctx := context.Background()
	guard := &mongo.Federation{ID: "fed-1", Name: "guard"}

	t.Run("joins when the chat has no federation", func(t *testing.T) {
		// Arrange
		joined := false
		p := newFedTestPlugin(&mockFedRepo{
			GetFunc: func(_ context.Context, fid string) (*mongo.Federation, error) {
				return guard, nil
			},
			JoinChatFunc: func(_ context.Context, fid string, chatID int64) error {
				joined = true
				if fid != "fed-1" || chatID != -100200 {
					t.Errorf("JoinChat(%q, %d), want (fed-1, -100200)", fid, chatID)
				}
				return nil
			},
		})
		c, sender := newFedTestContext("fed-1")

		// Act
		err := p.cmdJoinFed(ctx, c)

		// Assert
		if err != nil {
			t.Fatalf("cmdJoinFed error: %v", err)
		}
		if !joined {
			t.Error("JoinChat not called")
		}
		if len(sender.sent) != 1 || sender.sent[0] != "fed-joined" {
			t.Errorf("replies = %v, want [fed-joined]", sender.sent)
		}
	})

	t.Run("refuses a chat already in a federation", func(t *testing.T) {
		// Arrange
		p := newFedTestPlugin(&mockFedRepo{
			GetFunc: func(_ context.Context, fid string) (*mongo.Federation, error) {
				return guard, nil
			},
			GetByChatFunc: func(_ context.Context, chatID int64) (*mongo.Federation, error) {
				return &mongo.Federation{ID: "fed-2", Name: "other"}, nil
			},
			JoinChatFunc: func(_ context.Context, fid string, chatID int64) error {
				t.Error("JoinChat called for a chat already in a federation")
				return nil
			},
		})
		c, sender := newFedTestContext("fed-1")

		// Act
		err := p.cmdJoinFed(ctx, c)

		// Assert
		if err != nil {
			t.Fatalf("cmdJoinFed error: %v", err)
		}
		if len(sender.sent) != 1 || sender.sent[0] != "fed-already-joined" {
			t.Errorf("replies = %v, want [fed-already-joined]", sender.sent)
		}
	})

	t.Run("membership lookup failure aborts the join", func(t *testing.T) {
		// Arrange
		wantErr := errors.New("mongo timeout")
		p := newFedTestPlugin(&mockFedRepo{
			GetFunc: func(_ context.Context, fid string) (*mongo.Federation, error) {
				return guard, nil
			},
			GetByChatFunc: func(_ context.Context, chatID int64) (*mongo.Federation, error) {
				return nil, wantErr
			},
			JoinChatFunc: func(_ context.Context, fid string, chatID int64) error {
				t.Error("JoinChat called despite the lookup failure")
				return nil
			},
		})
		c, sender := newFedTestContext("fed-1")

		// Act
		err := p.cmdJoinFed(ctx, c)

		// Assert
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
		if len(sender.sent) != 0 {
			t.Errorf("replies = %v, want none", sender.sent)
		}
	})

	t.Run("unknown federation id", func(t *testing.T) {
		// Arrange
		p := newFedTestPlugin(&mockFedRepo{})
		c, sender := newFedTestContext("nope")

		// Act
		err := p.cmdJoinFed(ctx, c)

		// Assert
		if err != nil {
			t.Fatalf("cmdJoinFed error: %v", err)
		}
		if len(sender.sent) != 1 || sender.sent[0] != "fed-invalid-id" {
			t.Errorf("replies = %v, want [fed-invalid-id]", sender.sent)
		}
	})
}
