// Package bot wires plugins, storage and the Telegram transport into one
// dispatching core.
package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/i18n"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/mongo"
	"github.com/userbotindo/anjani/internal/infra/redis"
	"github.com/userbotindo/anjani/internal/infra/telegram"
)

// Repos groups every persistence interface plugins reach for.
type Repos struct {
	Chats   mongo.ChatRepository
	Users   mongo.UserRepository
	Langs   mongo.LanguageRepository
	Rules   mongo.RulesRepository
	Notes   mongo.NotesRepository
	Welcome mongo.WelcomeRepository
	Feds    mongo.FedRepository
	Gban    mongo.GbanSettingRepository
	Staff   mongo.StaffRepository
	Session mongo.SessionRepository
}

type registeredCommand struct {
	spec   command.Spec
	plugin string
}

type prioritizedListener struct {
	listener MessageListener
	priority int
}

// Bot owns the plugin registry and routes updates to handlers.
type Bot struct {
	Config  *config.Config
	Client  *telegram.Client
	Bundle  *i18n.Bundle
	DB      Repos
	Redis   redis.Client
	Limiter *redis.RateLimiter
	Log     *zerolog.Logger

	plugins  map[string]Plugin
	commands map[string]*registeredCommand
	helpKeys []string

	msgListeners     []prioritizedListener
	cbListeners      []CallbackListener
	actionListeners  []ChatActionListener
	migrateListeners []MigrateListener
	backuppers       map[string]Backupper
	restorers        map[string]Restorer

	mu    sync.RWMutex
	langs map[int64]string
	staff map[int64]struct{}

	startedAt time.Time
}

func New(cfg *config.Config, client *telegram.Client, bundle *i18n.Bundle, repos Repos, rds redis.Client, limiter *redis.RateLimiter, base *zerolog.Logger) *Bot {
	return &Bot{
		Config:     cfg,
		Client:     client,
		Bundle:     bundle,
		DB:         repos,
		Redis:      rds,
		Limiter:    limiter,
		Log:        logging.Component(base, "bot"),
		plugins:    make(map[string]Plugin),
		commands:   make(map[string]*registeredCommand),
		backuppers: make(map[string]Backupper),
		restorers:  make(map[string]Restorer),
		langs:      make(map[int64]string),
		staff:      make(map[int64]struct{}),
	}
}

// Register adds plugins and their commands. Duplicate plugin names or command
// names (aliases included) are a startup error.
func (b *Bot) Register(plugins ...Plugin) error {
	for _, p := range plugins {
		name := p.Name()
		if _, ok := b.plugins[name]; ok {
			return fmt.Errorf("plugin %q: %w", name, derror.ErrExistingPlugin)
		}
		b.plugins[name] = p

		for _, spec := range p.Commands() {
			names := append([]string{spec.Name}, spec.Aliases...)
			for _, cmd := range names {
				if existing, ok := b.commands[cmd]; ok {
					return fmt.Errorf("command %q from %q already registered by %q: %w",
						cmd, name, existing.plugin, derror.ErrExistingCommand)
				}
				s := spec
				b.commands[cmd] = &registeredCommand{spec: s, plugin: name}
			}
			if spec.HelpKey != "" {
				b.helpKeys = append(b.helpKeys, spec.HelpKey)
			}
		}

		if l, ok := p.(MessageListener); ok {
			prio := 50
			if pl, ok := p.(ListenerPriority); ok {
				prio = pl.ListenPriority()
			}
			b.msgListeners = append(b.msgListeners, prioritizedListener{listener: l, priority: prio})
		}
		if l, ok := p.(CallbackListener); ok {
			b.cbListeners = append(b.cbListeners, l)
		}
		if l, ok := p.(ChatActionListener); ok {
			b.actionListeners = append(b.actionListeners, l)
		}
		if l, ok := p.(MigrateListener); ok {
			b.migrateListeners = append(b.migrateListeners, l)
		}
		if bk, ok := p.(Backupper); ok {
			b.backuppers[name] = bk
		}
		if rs, ok := p.(Restorer); ok {
			b.restorers[name] = rs
		}

		b.Log.Debug().Str("plugin", name).Msg("registered")
	}

	sort.SliceStable(b.msgListeners, func(i, j int) bool {
		return b.msgListeners[i].priority < b.msgListeners[j].priority
	})
	return nil
}

// Plugins returns registered plugins keyed by name.
func (b *Bot) Plugins() map[string]Plugin { return b.plugins }

// HelpKeys lists the locale keys of all visible commands, sorted.
func (b *Bot) HelpKeys() []string {
	keys := make([]string, len(b.helpKeys))
	copy(keys, b.helpKeys)
	sort.Strings(keys)
	return keys
}

// StartedAt reports when Run began, for uptime reporting.
func (b *Bot) StartedAt() time.Time { return b.startedAt }

// Run loads state, fires OnLoad hooks and blocks on long polling.
func (b *Bot) Run(ctx context.Context) error {
	b.startedAt = time.Now()

	if err := b.loadState(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	for name, p := range b.plugins {
		loader, ok := p.(OnLoader)
		if !ok {
			continue
		}
		if err := loader.OnLoad(ctx); err != nil {
			return fmt.Errorf("plugin %q on_load: %w", name, err)
		}
	}

	b.Log.Info().Int("plugins", len(b.plugins)).Int("commands", len(b.commands)).Msg("bot running")
	b.Client.StartPolling(ctx, b.dispatch)
	return nil
}

func (b *Bot) loadState(ctx context.Context) error {
	langs, err := b.DB.Langs.All(ctx)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}

	staffIDs, err := b.DB.Staff.All(ctx)
	if err != nil {
		return fmt.Errorf("load staff: %w", err)
	}

	b.mu.Lock()
	b.langs = langs
	if b.langs == nil {
		b.langs = make(map[int64]string)
	}
	b.staff = make(map[int64]struct{}, len(staffIDs)+len(b.Config.Bot.StaffIDs))
	for _, id := range staffIDs {
		b.staff[id] = struct{}{}
	}
	for _, id := range b.Config.Bot.StaffIDs {
		b.staff[id] = struct{}{}
	}
	b.mu.Unlock()
	return nil
}

// Lang returns the chat's language code, defaulting to English.
func (b *Bot) Lang(chatID int64) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if lang, ok := b.langs[chatID]; ok {
		return lang
	}
	return "en"
}

// SetLang persists and caches a chat's language choice.
func (b *Bot) SetLang(ctx context.Context, chatID int64, lang string) error {
	if !b.Bundle.Has(lang) {
		return fmt.Errorf("language %q: %w", lang, derror.ErrNotFound)
	}
	if err := b.DB.Langs.Set(ctx, chatID, lang); err != nil {
		return err
	}
	b.mu.Lock()
	b.langs[chatID] = lang
	b.mu.Unlock()
	return nil
}

// Text resolves a locale key in the chat's language.
func (b *Bot) Text(chatID int64, key string, args ...interface{}) string {
	return b.Bundle.Text(b.Lang(chatID), key, args...)
}

// IsStaff reports whether the user is the owner or a staff member.
func (b *Bot) IsStaff(userID int64) bool {
	if userID == b.Config.Bot.OwnerID {
		return true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.staff[userID]
	return ok
}

// IsOwner reports whether the user is the configured owner.
func (b *Bot) IsOwner(userID int64) bool { return userID == b.Config.Bot.OwnerID }

// AddStaff persists and caches a staff grant.
func (b *Bot) AddStaff(ctx context.Context, userID int64) error {
	if err := b.DB.Staff.Add(ctx, userID); err != nil {
		return err
	}
	b.mu.Lock()
	b.staff[userID] = struct{}{}
	b.mu.Unlock()
	return nil
}

// RemoveStaff revokes a staff grant.
func (b *Bot) RemoveStaff(ctx context.Context, userID int64) error {
	if err := b.DB.Staff.Remove(ctx, userID); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.staff, userID)
	b.mu.Unlock()
	return nil
}

// StaffIDs lists all staff including the owner.
func (b *Bot) StaffIDs() []int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int64, 0, len(b.staff)+1)
	ids = append(ids, b.Config.Bot.OwnerID)
	for id := range b.staff {
		if id != b.Config.Bot.OwnerID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Backuppers returns backup contributors keyed by plugin name.
func (b *Bot) Backuppers() map[string]Backupper { return b.backuppers }

// Restorers returns restore consumers keyed by plugin name.
func (b *Bot) Restorers() map[string]Restorer { return b.restorers }

// SendLog posts to the configured log channel, if any.
func (b *Bot) SendLog(ctx context.Context, text string) {
	if b.Config.Bot.LogChannel == 0 {
		return
	}
	if _, err := b.Client.SendText(ctx, b.Config.Bot.LogChannel, text, 0, nil); err != nil {
		b.Log.Warn().Err(err).Msg("log channel send failed")
	}
}
