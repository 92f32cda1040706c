// Package plugins holds every feature unit the bot loads. Each plugin gets
// the bot core at construction and declares its commands and listeners.
package plugins

import (
	"github.com/userbotindo/anjani/internal/bot"
	"github.com/userbotindo/anjani/internal/infra/spampredict"
	"github.com/userbotindo/anjani/internal/infra/spamshield"
)

// All builds the full plugin set. The spam-prediction plugin is only loaded
// when a classifier is configured.
func All(b *bot.Bot) []bot.Plugin {
	ps := []bot.Plugin{
		NewMain(b),
		NewUsers(b),
		NewLanguage(b),
		NewAdmin(b),
		NewRestriction(b),
		NewMuting(b),
		NewPurge(b),
		NewNotes(b),
		NewRules(b),
		NewWelcome(b),
		NewReporting(b),
		NewFederation(b),
		NewSpamShield(b, spamshield.NewCAS(b.Config.SpamShield), spamshield.NewSpamWatch(b.Config.SpamShield)),
		NewBackups(b),
		NewStaff(b),
		NewDebug(b),
	}

	if b.Config.MLEnabled() {
		ps = append(ps, NewSpamPredict(b, spampredict.New(b.Config.SpamPredict)))
	}
	return ps
}
