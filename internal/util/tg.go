package util

import (
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var buttonPattern = regexp.MustCompile(`\[([^]]+)]\(buttonurl:\s*(\S+?)(:same)?\)`)

// ParseButtons extracts "[text](buttonurl:url)" markers from note source text,
// returning the text with markers stripped and the parsed buttons. A ":same"
// suffix folds the button onto the previous row.
func ParseButtons(text string) (string, []Button) {
	matches := buttonPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	buttons := make([]Button, 0, len(matches))
	for _, m := range matches {
		buttons = append(buttons, Button{
			Text:     m[1],
			URL:      m[2],
			SameLine: m[3] != "",
		})
	}

	clean := buttonPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(clean), buttons
}

// Button is a persisted inline button attached to notes and welcome messages.
type Button struct {
	Text     string `bson:"text" json:"text"`
	URL      string `bson:"url" json:"url"`
	SameLine bool   `bson:"same_line" json:"same_line"`
}

// BuildKeyboard converts persisted buttons into an inline keyboard, folding
// SameLine buttons onto the previous row.
func BuildKeyboard(buttons []Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, b := range buttons {
		btn := tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL)
		if b.SameLine && len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], btn)
		} else {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
		}
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// RevertButtons renders buttons back into the "[text](buttonurl:...)" source
// notation so a saved note can be re-edited.
func RevertButtons(buttons []Button) string {
	var sb strings.Builder
	for _, b := range buttons {
		if b.SameLine {
			sb.WriteString(fmt.Sprintf("[%s](buttonurl:%s:same)", b.Text, b.URL))
		} else {
			sb.WriteString(fmt.Sprintf("\n[%s](buttonurl:%s)", b.Text, b.URL))
		}
	}
	return sb.String()
}

// EscapeMarkdown escapes the characters Telegram's legacy markdown parser
// treats as formatting.
func EscapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

// FullName joins first and last names the way Telegram displays them.
func FullName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}

// Mention builds a markdown user mention link.
func Mention(id int64, name string) string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", EscapeMarkdown(name), id)
}
