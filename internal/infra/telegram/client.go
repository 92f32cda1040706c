package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/metrics"
	"github.com/userbotindo/anjani/internal/infra/redis"
	"github.com/userbotindo/anjani/internal/util"
)

// UpdateHandler processes one Telegram update. Handlers run on the worker
// pool, so they must be safe for concurrent use.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// Client wraps the Bot API with long polling, a worker pool and an outgoing
// rate limit. All plugin traffic to Telegram goes through it.
type Client struct {
	api     *tgbotapi.BotAPI
	log     *zerolog.Logger
	limiter *rate.Limiter
	cache   *redis.Cache
	workers int

	wg sync.WaitGroup
}

func NewClient(cfg config.BotConfig, cache *redis.Cache, base *zerolog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	log := logging.Component(base, "telegram")
	log.Info().Str("username", api.Self.UserName).Int64("id", api.Self.ID).Msg("authorized")

	return &Client{
		api: api,
		log: log,
		// Telegram allows roughly 30 messages per second bot-wide.
		limiter: rate.NewLimiter(rate.Limit(25), 25),
		cache:   cache,
		workers: cfg.Workers,
	}, nil
}

// Self returns the bot's own account.
func (c *Client) Self() tgbotapi.User { return c.api.Self }

// StartPolling runs long polling and fans updates out to the worker pool.
// It blocks until ctx is cancelled and all in-flight updates are handled.
func (c *Client) StartPolling(ctx context.Context, handler UpdateHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "edited_message", "callback_query", "my_chat_member", "chat_member"}

	updates := c.api.GetUpdatesChan(u)
	queue := make(chan tgbotapi.Update, c.workers*4)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for update := range queue {
				c.safeHandle(ctx, handler, update)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		c.api.StopReceivingUpdates()
	}()

	for update := range updates {
		metrics.IncUpdate(updateKind(update))
		select {
		case queue <- update:
		case <-ctx.Done():
		}
	}

	close(queue)
	c.wg.Wait()
	c.log.Info().Msg("polling stopped")
}

func (c *Client) safeHandle(ctx context.Context, handler UpdateHandler, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("handler panicked")
		}
	}()
	handler(ctx, update)
}

func updateKind(u tgbotapi.Update) string {
	switch {
	case u.Message != nil:
		return "message"
	case u.EditedMessage != nil:
		return "edited_message"
	case u.CallbackQuery != nil:
		return "callback"
	case u.MyChatMember != nil, u.ChatMember != nil:
		return "chat_action"
	default:
		return "other"
	}
}

// send pushes a Chattable through the rate limiter.
func (c *Client) send(ctx context.Context, m tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return c.api.Send(m)
}

// request is send for API calls that return no Message.
func (c *Client) request(ctx context.Context, m tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.api.Request(m)
	return err
}

// SendText sends a Markdown-formatted message. A zero replyTo sends without
// threading, and keyboard may be nil.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, replyTo int, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	return c.send(ctx, msg)
}

// SendPlain sends a message without parse mode, for content that may carry
// characters Markdown would mangle.
func (c *Client) SendPlain(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error) {
	return c.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// SendMedia re-sends stored media by file id. The kind matches the note type
// recorded when the media was saved.
func (c *Client) SendMedia(ctx context.Context, chatID int64, kind string, fileID, caption string, replyTo int, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	file := tgbotapi.FileID(fileID)

	var m tgbotapi.Chattable
	switch kind {
	case "photo":
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	case "video":
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	case "audio":
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	case "voice":
		cfg := tgbotapi.NewVoice(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	case "sticker":
		cfg := tgbotapi.NewSticker(chatID, file)
		cfg.ReplyToMessageID = replyTo
		m = cfg
	case "animation":
		cfg := tgbotapi.NewAnimation(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	default:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = caption
		cfg.ParseMode = tgbotapi.ModeMarkdown
		cfg.ReplyToMessageID = replyTo
		if keyboard != nil {
			cfg.ReplyMarkup = keyboard
		}
		m = cfg
	}
	return c.send(ctx, m)
}

// SendDocumentBytes uploads an in-memory file, used for backup exports.
func (c *Client) SendDocumentBytes(ctx context.Context, chatID int64, name string, data []byte, caption string, replyTo int) (tgbotapi.Message, error) {
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	cfg.Caption = caption
	cfg.ParseMode = tgbotapi.ModeMarkdown
	if replyTo != 0 {
		cfg.ReplyToMessageID = replyTo
	}
	return c.send(ctx, cfg)
}

// DownloadFile fetches a file uploaded to Telegram by its file id.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	return fetchURL(ctx, url)
}

// EditText replaces the text of a previously sent message.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		edit.ReplyMarkup = keyboard
	}
	_, err := c.send(ctx, edit)
	return err
}

// AnswerCallback acknowledges a callback query with an optional toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	return c.request(ctx, cb)
}

// DeleteMessage removes a message. Missing messages are not an error; the
// purge loop hits already-deleted ids routinely.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	err := c.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil && isMessageGone(err) {
		return nil
	}
	return err
}

func isMessageGone(err error) bool {
	if tgErr, ok := err.(*tgbotapi.Error); ok {
		return tgErr.Code == 400
	}
	return false
}

// BanMember bans a user. A zero until makes the ban permanent.
func (c *Client) BanMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	return c.request(ctx, cfg)
}

// UnbanMember lifts a ban without kicking a present member.
func (c *Client) UnbanMember(ctx context.Context, chatID, userID int64) error {
	return c.request(ctx, tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	})
}

// KickMember removes a user but lets them rejoin (ban then unban).
func (c *Client) KickMember(ctx context.Context, chatID, userID int64) error {
	if err := c.BanMember(ctx, chatID, userID, time.Time{}); err != nil {
		return err
	}
	return c.request(ctx, tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	})
}

// MuteMember revokes the send permission. A zero until mutes forever.
func (c *Client) MuteMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &tgbotapi.ChatPermissions{CanSendMessages: false},
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	return c.request(ctx, cfg)
}

// UnmuteMember restores the default member permissions.
func (c *Client) UnmuteMember(ctx context.Context, chatID, userID int64) error {
	return c.request(ctx, tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
			CanPinMessages:        false,
			CanChangeInfo:         false,
		},
	})
}

// PromoteMember grants the standard moderation rights.
func (c *Client) PromoteMember(ctx context.Context, chatID, userID int64) error {
	yes := true
	return c.request(ctx, tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:   tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		CanDeleteMessages:  yes,
		CanRestrictMembers: yes,
		CanInviteUsers:     yes,
		CanPinMessages:     yes,
	})
}

// DemoteMember strips all admin rights.
func (c *Client) DemoteMember(ctx context.Context, chatID, userID int64) error {
	return c.request(ctx, tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	})
}

// PinMessage pins quietly by default.
func (c *Client) PinMessage(ctx context.Context, chatID int64, messageID int, loud bool) error {
	return c.request(ctx, tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: !loud,
	})
}

func (c *Client) UnpinMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, tgbotapi.UnpinChatMessageConfig{
		ChatID:    chatID,
		MessageID: messageID,
	})
}

func (c *Client) SetChatTitle(ctx context.Context, chatID int64, title string) error {
	return c.request(ctx, tgbotapi.SetChatTitleConfig{ChatID: chatID, Title: title})
}

func (c *Client) SetChatPhoto(ctx context.Context, chatID int64, data []byte) error {
	return c.request(ctx, tgbotapi.SetChatPhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: tgbotapi.BaseChat{ChatID: chatID},
			File:     tgbotapi.FileBytes{Name: "photo.jpg", Bytes: data},
		},
	})
}

// InviteLink returns the chat's primary invite link, exporting one if needed.
func (c *Client) InviteLink(ctx context.Context, chatID int64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return "", err
	}
	if chat.InviteLink != "" {
		return chat.InviteLink, nil
	}
	return c.api.GetInviteLink(tgbotapi.ChatInviteLinkConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
}

// GetChatMember fetches one member's status, mapping the API's "user not
// found" family onto derror.ErrUserNotParticipant.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*tgbotapi.ChatMember, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		if tgErr, ok := err.(*tgbotapi.Error); ok && tgErr.Code == 400 {
			return nil, derror.ErrUserNotParticipant
		}
		return nil, err
	}
	return &member, nil
}

// Admin is the slim admin record kept in redis.
type Admin struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Creator bool   `json:"creator"`
	Rights  struct {
		Restrict   bool `json:"restrict"`
		Pin        bool `json:"pin"`
		ChangeInfo bool `json:"change_info"`
		Promote    bool `json:"promote"`
		Delete     bool `json:"delete"`
	} `json:"rights"`
}

// ChatAdmins returns the admin list for a chat, served from cache when fresh.
func (c *Client) ChatAdmins(ctx context.Context, chatID int64) ([]Admin, error) {
	key := redis.AdminsKey(chatID)

	var cached []Admin
	if c.cache != nil {
		if hit, err := c.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	admins, err := c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, err
	}

	out := make([]Admin, 0, len(admins))
	for _, a := range admins {
		entry := Admin{UserID: a.User.ID, Creator: a.Status == "creator"}
		if a.User != nil {
			entry.Name = util.FullName(a.User.FirstName, a.User.LastName)
		}
		entry.Rights.Restrict = a.CanRestrictMembers || entry.Creator
		entry.Rights.Pin = a.CanPinMessages || entry.Creator
		entry.Rights.ChangeInfo = a.CanChangeInfo || entry.Creator
		entry.Rights.Promote = a.CanPromoteMembers || entry.Creator
		entry.Rights.Delete = a.CanDeleteMessages || entry.Creator
		out = append(out, entry)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, out); err != nil {
			c.log.Warn().Err(err).Int64("chat_id", chatID).Msg("admin cache write failed")
		}
	}
	return out, nil
}

// InvalidateAdmins drops the cached admin list, called on admin changes.
func (c *Client) InvalidateAdmins(ctx context.Context, chatID int64) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Invalidate(ctx, redis.AdminsKey(chatID))
}

// IsAdmin reports whether the user appears in the chat's admin list.
func (c *Client) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	admins, err := c.ChatAdmins(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// AdminRight names one grantable admin permission.
type AdminRight string

const (
	RightRestrict   AdminRight = "restrict"
	RightPin        AdminRight = "pin"
	RightChangeInfo AdminRight = "change_info"
	RightPromote    AdminRight = "promote"
	RightDelete     AdminRight = "delete"
)

// HasRight reports whether the user holds a specific admin right in the chat.
func (c *Client) HasRight(ctx context.Context, chatID, userID int64, right AdminRight) (bool, error) {
	admins, err := c.ChatAdmins(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a.UserID != userID {
			continue
		}
		if a.Creator {
			return true, nil
		}
		switch right {
		case RightRestrict:
			return a.Rights.Restrict, nil
		case RightPin:
			return a.Rights.Pin, nil
		case RightChangeInfo:
			return a.Rights.ChangeInfo, nil
		case RightPromote:
			return a.Rights.Promote, nil
		case RightDelete:
			return a.Rights.Delete, nil
		}
	}
	return false, nil
}

// MemberCount returns the chat's member count.
func (c *Client) MemberCount(ctx context.Context, chatID int64) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
}

// LeaveChat makes the bot leave a chat.
func (c *Client) LeaveChat(ctx context.Context, chatID int64) error {
	return c.request(ctx, tgbotapi.LeaveChatConfig{ChatID: chatID})
}
