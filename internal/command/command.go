// Package command defines the contract between the dispatcher and plugin
// command handlers.
package command

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandlerFunc runs one invocation of a command.
type HandlerFunc func(ctx context.Context, c *Context) error

// Filter gates a command before its handler runs. Returning false without an
// error silently skips the command; an error is reported to the invoker.
type Filter func(ctx context.Context, c *Context) (bool, error)

// Spec declares a command a plugin wants registered.
type Spec struct {
	Name    string
	Aliases []string
	Filter  Filter
	Handler HandlerFunc
	// HelpKey is the locale key of the command's help section, empty for
	// hidden commands.
	HelpKey string
}

// Texter resolves locale strings. Satisfied by i18n.Bundle.
type Texter interface {
	Text(lang, key string, args ...interface{}) string
}

// Sender is the slice of the Telegram client a command handler needs to talk
// back. Narrow so tests can fake it.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Context carries one command invocation: the triggering message, parsed
// arguments and the chat's resolved language.
type Context struct {
	Sender Sender
	Texter Texter

	Msg     *tgbotapi.Message
	Invoked string // the matched command name, aliases resolved
	Args    []string
	Lang    string
}

// ChatID returns the chat the command was issued in.
func (c *Context) ChatID() int64 { return c.Msg.Chat.ID }

// SenderID returns the issuing user's id.
func (c *Context) SenderID() int64 {
	if c.Msg.From == nil {
		return 0
	}
	return c.Msg.From.ID
}

// IsPrivate reports whether the command came from a private chat.
func (c *Context) IsPrivate() bool { return c.Msg.Chat.IsPrivate() }

// ReplyMsg returns the message the command replied to, or nil.
func (c *Context) ReplyMsg() *tgbotapi.Message { return c.Msg.ReplyToMessage }

// Input returns everything after the command, whitespace-joined.
func (c *Context) Input() string { return strings.Join(c.Args, " ") }

// InputRaw returns the argument text as typed, newlines preserved.
func (c *Context) InputRaw() string { return c.Msg.CommandArguments() }

// Text resolves a locale key in the chat's language.
func (c *Context) Text(key string, args ...interface{}) string {
	return c.Texter.Text(c.Lang, key, args...)
}

// Respond sends text to the chat.
func (c *Context) Respond(ctx context.Context, text string) (tgbotapi.Message, error) {
	return c.Sender.SendText(ctx, c.ChatID(), text, 0, nil)
}

// RespondText resolves a locale key and sends it.
func (c *Context) RespondText(ctx context.Context, key string, args ...interface{}) (tgbotapi.Message, error) {
	return c.Respond(ctx, c.Text(key, args...))
}

// Reply sends text threaded onto the triggering message.
func (c *Context) Reply(ctx context.Context, text string) (tgbotapi.Message, error) {
	return c.Sender.SendText(ctx, c.ChatID(), text, c.Msg.MessageID, nil)
}

// ReplyText resolves a locale key and replies with it.
func (c *Context) ReplyText(ctx context.Context, key string, args ...interface{}) (tgbotapi.Message, error) {
	return c.Reply(ctx, c.Text(key, args...))
}

// RespondKeyboard sends text with an inline keyboard attached.
func (c *Context) RespondKeyboard(ctx context.Context, text string, kb *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	return c.Sender.SendText(ctx, c.ChatID(), text, 0, kb)
}

// DeleteInvocation removes the triggering message.
func (c *Context) DeleteInvocation(ctx context.Context) error {
	return c.Sender.DeleteMessage(ctx, c.ChatID(), c.Msg.MessageID)
}
