package bot

import (
	"context"
	"errors"

	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/infra/telegram"
)

// Filters built here close over the bot so they can consult the admin cache
// and staff set. A failing filter replies with a localized refusal.

// GroupOnly passes in groups and supergroups, replying a hint in private.
func (b *Bot) GroupOnly() command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		if c.IsPrivate() {
			return false, errors.New(c.Text("err-chat-groups-only"))
		}
		return true, nil
	}
}

// PrivateOnly passes only in a private chat with the bot.
func (b *Bot) PrivateOnly() command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		if !c.IsPrivate() {
			return false, errors.New(c.Text("err-chat-pm-only"))
		}
		return true, nil
	}
}

// AdminOnly passes for chat admins and bot staff.
func (b *Bot) AdminOnly() command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		if c.IsPrivate() {
			return false, errors.New(c.Text("err-chat-groups-only"))
		}
		if b.IsStaff(c.SenderID()) {
			return true, nil
		}
		ok, err := b.Client.IsAdmin(ctx, c.ChatID(), c.SenderID())
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.New(c.Text("err-admin-required"))
		}
		return true, nil
	}
}

// withRight builds a filter requiring both the invoker and the bot itself to
// hold the given admin right.
func (b *Bot) withRight(right telegram.AdminRight, key string) command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		if c.IsPrivate() {
			return false, errors.New(c.Text("err-chat-groups-only"))
		}

		if !b.IsStaff(c.SenderID()) {
			ok, err := b.Client.HasRight(ctx, c.ChatID(), c.SenderID(), right)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, errors.New(c.Text(key))
			}
		}

		ok, err := b.Client.HasRight(ctx, c.ChatID(), b.Client.Self().ID, right)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.New(c.Text("err-bot-no-rights"))
		}
		return true, nil
	}
}

// CanRestrict requires the ban/restrict right.
func (b *Bot) CanRestrict() command.Filter {
	return b.withRight(telegram.RightRestrict, "err-no-restrict-rights")
}

// CanPin requires the pin right.
func (b *Bot) CanPin() command.Filter {
	return b.withRight(telegram.RightPin, "err-no-pin-rights")
}

// CanChangeInfo requires the change-info right.
func (b *Bot) CanChangeInfo() command.Filter {
	return b.withRight(telegram.RightChangeInfo, "err-no-changeinfo-rights")
}

// CanPromote requires the promote right.
func (b *Bot) CanPromote() command.Filter {
	return b.withRight(telegram.RightPromote, "err-no-promote-rights")
}

// CanDelete requires the delete-messages right.
func (b *Bot) CanDelete() command.Filter {
	return b.withRight(telegram.RightDelete, "err-no-delete-rights")
}

// StaffOnly passes for bot staff, silently dropping everyone else.
func (b *Bot) StaffOnly() command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		return b.IsStaff(c.SenderID()), nil
	}
}

// OwnerOnly passes only for the configured owner.
func (b *Bot) OwnerOnly() command.Filter {
	return func(ctx context.Context, c *command.Context) (bool, error) {
		return b.IsOwner(c.SenderID()), nil
	}
}
