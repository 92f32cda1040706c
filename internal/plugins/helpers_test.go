//go:build !integration

package plugins

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/userbotindo/anjani/internal/infra/mongo"
	"github.com/userbotindo/anjani/internal/infra/spamshield"
)

func TestParseToggle(t *testing.T) {
	cases := []struct {
		arg     string
		enabled bool
		ok      bool
	}{
		{"on", true, true},
		{"Yes", true, true},
		{"TRUE", true, true},
		{"off", false, true},
		{"no", false, true},
		{"false", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		t.Run("arg "+tc.arg, func(t *testing.T) {
			enabled, ok := parseToggle(tc.arg)
			if enabled != tc.enabled || ok != tc.ok {
				t.Errorf("parseToggle(%q) = %v, %v; want %v, %v",
					tc.arg, enabled, ok, tc.enabled, tc.ok)
			}
		})
	}
}

func TestParseUntil(t *testing.T) {
	t.Run("duration flag consumed", func(t *testing.T) {
		until, reason := parseUntil([]string{"2h", "posting", "scams"})
		if until.IsZero() {
			t.Error("until is zero for a valid duration flag")
		}
		if remaining := time.Until(until); remaining < time.Hour || remaining > 3*time.Hour {
			t.Errorf("until %s away, want about 2h", remaining)
		}
		if reason != "posting scams" {
			t.Errorf("reason = %q, want %q", reason, "posting scams")
		}
	})

	t.Run("no flag keeps everything as reason", func(t *testing.T) {
		until, reason := parseUntil([]string{"posting", "scams"})
		if !until.IsZero() {
			t.Errorf("until = %v, want zero", until)
		}
		if reason != "posting scams" {
			t.Errorf("reason = %q", reason)
		}
	})

	t.Run("empty args", func(t *testing.T) {
		until, reason := parseUntil(nil)
		if !until.IsZero() || reason != "" {
			t.Errorf("parseUntil(nil) = %v, %q; want zero, empty", until, reason)
		}
	})
}

func TestValidNoteName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"rules", true},
		{"faq-2024", true},
		{"v1.2", false},
		{"$set", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run("name "+tc.name, func(t *testing.T) {
			if got := validNoteName(tc.name); got != tc.ok {
				t.Errorf("validNoteName(%q) = %v, want %v", tc.name, got, tc.ok)
			}
		})
	}
}

func TestNoteFromReply(t *testing.T) {
	cases := []struct {
		name     string
		reply    *tgbotapi.Message
		wantType mongo.NoteType
		wantFile string
		wantText string
	}{
		{
			name:     "plain text",
			reply:    &tgbotapi.Message{Text: "remember this"},
			wantType: mongo.NoteText,
			wantText: "remember this",
		},
		{
			name: "document",
			reply: &tgbotapi.Message{
				Document: &tgbotapi.Document{FileID: "doc-1"},
				Caption:  "the handbook",
			},
			wantType: mongo.NoteDocument,
			wantFile: "doc-1",
			wantText: "the handbook",
		},
		{
			name: "photo picks largest size",
			reply: &tgbotapi.Message{
				Photo: []tgbotapi.PhotoSize{
					{FileID: "small"},
					{FileID: "large"},
				},
			},
			wantType: mongo.NotePhoto,
			wantFile: "large",
		},
		{
			name: "sticker drops caption",
			reply: &tgbotapi.Message{
				Sticker: &tgbotapi.Sticker{FileID: "stk-1"},
				Caption: "ignored",
			},
			wantType: mongo.NoteSticker,
			wantFile: "stk-1",
		},
		{
			name: "video",
			reply: &tgbotapi.Message{
				Video:   &tgbotapi.Video{FileID: "vid-1"},
				Caption: "clip",
			},
			wantType: mongo.NoteVideo,
			wantFile: "vid-1",
			wantText: "clip",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			noteType, fileID, text := noteFromReply(tc.reply)
			if noteType != tc.wantType || fileID != tc.wantFile || text != tc.wantText {
				t.Errorf("noteFromReply = %v, %q, %q; want %v, %q, %q",
					noteType, fileID, text, tc.wantType, tc.wantFile, tc.wantText)
			}
		})
	}
}

func TestVerdictLabel(t *testing.T) {
	if got := verdictLabel(&spamshield.Verdict{Banned: true}); got != "banned" {
		t.Errorf("verdictLabel(banned) = %q", got)
	}
	if got := verdictLabel(&spamshield.Verdict{}); got != "clean" {
		t.Errorf("verdictLabel(clean) = %q", got)
	}
}
