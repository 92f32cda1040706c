//go:build !integration

package command

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type mockSender struct {
	SendTextFunc      func(ctx context.Context, chatID int64, text string, replyTo int, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	DeleteMessageFunc func(ctx context.Context, chatID int64, messageID int) error
}

func (m *mockSender) SendText(ctx context.Context, chatID int64, text string, replyTo int, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, chatID, text, replyTo, keyboard)
	}
	return tgbotapi.Message{}, nil
}

func (m *mockSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, chatID, messageID)
	}
	return nil
}

type fakeTexter struct{}

func (fakeTexter) Text(lang, key string, args ...interface{}) string {
	return lang + ":" + key
}

func newTestContext(sender Sender) *Context {
	return &Context{
		Sender: sender,
		Texter: fakeTexter{},
		Msg: &tgbotapi.Message{
			MessageID: 7,
			From:      &tgbotapi.User{ID: 100},
			Chat:      &tgbotapi.Chat{ID: -200, Type: "supergroup"},
			Text:      "/ban @someone spam",
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: 4},
			},
		},
		Invoked: "ban",
		Args:    []string{"@someone", "spam"},
		Lang:    "en",
	}
}

func TestContextAccessors(t *testing.T) {
	c := newTestContext(&mockSender{})

	if c.ChatID() != -200 {
		t.Errorf("ChatID = %d, want -200", c.ChatID())
	}
	if c.SenderID() != 100 {
		t.Errorf("SenderID = %d, want 100", c.SenderID())
	}
	if c.IsPrivate() {
		t.Error("IsPrivate = true for a supergroup")
	}
	if c.Input() != "@someone spam" {
		t.Errorf("Input = %q", c.Input())
	}
	if c.InputRaw() != "@someone spam" {
		t.Errorf("InputRaw = %q", c.InputRaw())
	}
	if c.Text("hello") != "en:hello" {
		t.Errorf("Text = %q, want language-resolved key", c.Text("hello"))
	}
}

func TestContextSenderIDWithoutFrom(t *testing.T) {
	c := newTestContext(&mockSender{})
	c.Msg.From = nil

	if c.SenderID() != 0 {
		t.Errorf("SenderID = %d, want 0 for channel posts", c.SenderID())
	}
}

func TestContextRespond(t *testing.T) {
	t.Run("respond targets the chat", func(t *testing.T) {
		var gotChat int64
		var gotReply int
		sender := &mockSender{
			SendTextFunc: func(ctx context.Context, chatID int64, text string, replyTo int, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
				gotChat, gotReply = chatID, replyTo
				return tgbotapi.Message{}, nil
			},
		}
		c := newTestContext(sender)

		if _, err := c.Respond(context.Background(), "hi"); err != nil {
			t.Fatalf("Respond error: %v", err)
		}
		if gotChat != -200 || gotReply != 0 {
			t.Errorf("sent to %d reply %d, want -200 reply 0", gotChat, gotReply)
		}
	})

	t.Run("reply threads onto the message", func(t *testing.T) {
		var gotReply int
		sender := &mockSender{
			SendTextFunc: func(ctx context.Context, chatID int64, text string, replyTo int, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
				gotReply = replyTo
				return tgbotapi.Message{}, nil
			},
		}
		c := newTestContext(sender)

		if _, err := c.ReplyText(context.Background(), "some-key"); err != nil {
			t.Fatalf("ReplyText error: %v", err)
		}
		if gotReply != 7 {
			t.Errorf("replyTo = %d, want 7", gotReply)
		}
	})

	t.Run("respond text resolves the key", func(t *testing.T) {
		var gotText string
		sender := &mockSender{
			SendTextFunc: func(ctx context.Context, chatID int64, text string, replyTo int, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
				gotText = text
				return tgbotapi.Message{}, nil
			},
		}
		c := newTestContext(sender)

		if _, err := c.RespondText(context.Background(), "some-key"); err != nil {
			t.Fatalf("RespondText error: %v", err)
		}
		if gotText != "en:some-key" {
			t.Errorf("text = %q, want resolved key", gotText)
		}
	})

	t.Run("keyboard is passed through", func(t *testing.T) {
		kb := &tgbotapi.InlineKeyboardMarkup{}
		var gotKb *tgbotapi.InlineKeyboardMarkup
		sender := &mockSender{
			SendTextFunc: func(ctx context.Context, chatID int64, text string, replyTo int, k *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
				gotKb = k
				return tgbotapi.Message{}, nil
			},
		}
		c := newTestContext(sender)

		if _, err := c.RespondKeyboard(context.Background(), "menu", kb); err != nil {
			t.Fatalf("RespondKeyboard error: %v", err)
		}
		if gotKb != kb {
			t.Error("keyboard was not forwarded to the sender")
		}
	})
}

func TestDeleteInvocation(t *testing.T) {
	var gotChat int64
	var gotMsg int
	sender := &mockSender{
		DeleteMessageFunc: func(ctx context.Context, chatID int64, messageID int) error {
			gotChat, gotMsg = chatID, messageID
			return nil
		},
	}
	c := newTestContext(sender)

	if err := c.DeleteInvocation(context.Background()); err != nil {
		t.Fatalf("DeleteInvocation error: %v", err)
	}
	if gotChat != -200 || gotMsg != 7 {
		t.Errorf("deleted %d/%d, want -200/7", gotChat, gotMsg)
	}
}
