//go:build !integration

package util

import (
	"testing"
)

func TestParseButtons(t *testing.T) {
	t.Run("no buttons", func(t *testing.T) {
		text, buttons := ParseButtons("plain note text")
		if text != "plain note text" || buttons != nil {
			t.Errorf("got %q / %v, want unchanged text and nil buttons", text, buttons)
		}
	})

	t.Run("single button", func(t *testing.T) {
		text, buttons := ParseButtons("hello\n[Site](buttonurl:https://example.com)")
		if text != "hello" {
			t.Errorf("text = %q, want %q", text, "hello")
		}
		if len(buttons) != 1 {
			t.Fatalf("buttons = %d, want 1", len(buttons))
		}
		if buttons[0].Text != "Site" || buttons[0].URL != "https://example.com" || buttons[0].SameLine {
			t.Errorf("button = %+v", buttons[0])
		}
	})

	t.Run("same line marker", func(t *testing.T) {
		_, buttons := ParseButtons("[A](buttonurl:https://a.io)[B](buttonurl:https://b.io:same)")
		if len(buttons) != 2 {
			t.Fatalf("buttons = %d, want 2", len(buttons))
		}
		if buttons[0].SameLine {
			t.Error("first button should start a new row")
		}
		if !buttons[1].SameLine {
			t.Error("second button should fold onto the same row")
		}
	})
}

func TestRevertButtonsRoundTrip(t *testing.T) {
	// Arrange
	buttons := []Button{
		{Text: "Docs", URL: "https://docs.example.com"},
		{Text: "Chat", URL: "https://t.me/example", SameLine: true},
	}

	// Act
	source := RevertButtons(buttons)
	_, parsed := ParseButtons(source)

	// Assert
	if len(parsed) != len(buttons) {
		t.Fatalf("round trip produced %d buttons, want %d", len(parsed), len(buttons))
	}
	for i := range buttons {
		if parsed[i] != buttons[i] {
			t.Errorf("button %d = %+v, want %+v", i, parsed[i], buttons[i])
		}
	}
}

func TestBuildKeyboard(t *testing.T) {
	t.Run("empty returns nil", func(t *testing.T) {
		if kb := BuildKeyboard(nil); kb != nil {
			t.Errorf("BuildKeyboard(nil) = %v, want nil", kb)
		}
	})

	t.Run("same line folds rows", func(t *testing.T) {
		kb := BuildKeyboard([]Button{
			{Text: "A", URL: "https://a.io"},
			{Text: "B", URL: "https://b.io", SameLine: true},
			{Text: "C", URL: "https://c.io"},
		})
		if kb == nil {
			t.Fatal("keyboard is nil")
		}
		if len(kb.InlineKeyboard) != 2 {
			t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
		}
		if len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
			t.Errorf("row sizes = %d/%d, want 2/1",
				len(kb.InlineKeyboard[0]), len(kb.InlineKeyboard[1]))
		}
	})
}

func TestEscapeMarkdown(t *testing.T) {
	got := EscapeMarkdown("a_b*c`d[e")
	want := "a\\_b\\*c\\`d\\[e"
	if got != want {
		t.Errorf("EscapeMarkdown = %q, want %q", got, want)
	}
}

func TestFullName(t *testing.T) {
	if got := FullName("Ada", ""); got != "Ada" {
		t.Errorf("FullName(Ada,) = %q", got)
	}
	if got := FullName("Ada", "Lovelace"); got != "Ada Lovelace" {
		t.Errorf("FullName(Ada,Lovelace) = %q", got)
	}
}
