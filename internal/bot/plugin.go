package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/command"
)

// Plugin is one feature unit. Plugins declare commands at registration; the
// optional interfaces below add event hooks.
type Plugin interface {
	Name() string
	Commands() []command.Spec
}

// OnLoader runs once after all plugins are registered, before polling starts.
type OnLoader interface {
	OnLoad(ctx context.Context) error
}

// MessageListener receives every incoming message, commands included.
// Returning true stops propagation to lower-priority listeners.
type MessageListener interface {
	OnMessage(ctx context.Context, msg *tgbotapi.Message) (bool, error)
}

// ListenerPriority orders message listeners; lower runs first. Listeners
// without it run at priority 50.
type ListenerPriority interface {
	ListenPriority() int
}

// CallbackListener receives callback queries. Returning true stops
// propagation.
type CallbackListener interface {
	OnCallback(ctx context.Context, query *tgbotapi.CallbackQuery) (bool, error)
}

// ChatActionListener receives join and leave service messages.
type ChatActionListener interface {
	OnChatAction(ctx context.Context, msg *tgbotapi.Message) error
}

// MigrateListener runs when a group upgrades to a supergroup and changes id.
type MigrateListener interface {
	OnChatMigrate(ctx context.Context, oldID, newID int64) error
}

// Backupper contributes a section to a chat's backup export, keyed by the
// plugin name. A nil section is skipped.
type Backupper interface {
	Backup(ctx context.Context, chatID int64) (bson.M, error)
}

// Restorer consumes its section of a backup import.
type Restorer interface {
	Restore(ctx context.Context, chatID int64, data bson.M) error
}
