//go:build !integration

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/i18n"
	"github.com/userbotindo/anjani/internal/infra/mongo"
)

type testPlugin struct {
	name string
	cmds []command.Spec
}

func (p *testPlugin) Name() string             { return p.name }
func (p *testPlugin) Commands() []command.Spec { return p.cmds }

type mockLangRepo struct {
	AllFunc func(ctx context.Context) (map[int64]string, error)
	SetFunc func(ctx context.Context, chatID int64, lang string) error
}

func (m *mockLangRepo) All(ctx context.Context) (map[int64]string, error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx)
	}
	return map[int64]string{}, nil
}

func (m *mockLangRepo) Set(ctx context.Context, chatID int64, lang string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, chatID, lang)
	}
	return nil
}

func (m *mockLangRepo) Migrate(ctx context.Context, oldID, newID int64) error { return nil }

func (m *mockLangRepo) Export(ctx context.Context, chatID int64) (bson.M, error) { return nil, nil }

func (m *mockLangRepo) Import(ctx context.Context, chatID int64, data bson.M) error { return nil }

type mockStaffRepo struct {
	AddFunc    func(ctx context.Context, userID int64) error
	RemoveFunc func(ctx context.Context, userID int64) error
}

func (m *mockStaffRepo) All(ctx context.Context) ([]int64, error) { return nil, nil }

func (m *mockStaffRepo) Add(ctx context.Context, userID int64) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, userID)
	}
	return nil
}

func (m *mockStaffRepo) Remove(ctx context.Context, userID int64) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, userID)
	}
	return nil
}

type mockUserRepo struct {
	GetFunc           func(ctx context.Context, userID int64) (*mongo.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*mongo.User, error)
}

func (m *mockUserRepo) Track(ctx context.Context, userID int64, username string, chatID int64) error {
	return nil
}

func (m *mockUserRepo) TrackPrivate(ctx context.Context, userID int64, username string) error {
	return nil
}

func (m *mockUserRepo) Get(ctx context.Context, userID int64) (*mongo.User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, derror.ErrNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*mongo.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, derror.ErrNotFound
}

func (m *mockUserRepo) InChat(ctx context.Context, chatID int64) ([]mongo.User, error) {
	return nil, nil
}

func (m *mockUserRepo) RemoveChat(ctx context.Context, userID, chatID int64) error { return nil }

func (m *mockUserRepo) PullChatFromAll(ctx context.Context, chatID int64) error { return nil }

func (m *mockUserRepo) AdjustReputation(ctx context.Context, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockUserRepo) Migrate(ctx context.Context, oldID, newID int64) error { return nil }

func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	bundle, err := i18n.Load(fstest.MapFS{
		"locales/en.yaml": &fstest.MapFile{Data: []byte("greet: \"hello\"")},
		"locales/id.yaml": &fstest.MapFile{Data: []byte("greet: \"halo\"")},
	})
	if err != nil {
		t.Fatalf("load test bundle: %v", err)
	}
	return bundle
}

func newTestBot(t *testing.T, repos Repos) *Bot {
	t.Helper()
	if repos.Langs == nil {
		repos.Langs = &mockLangRepo{}
	}
	if repos.Staff == nil {
		repos.Staff = &mockStaffRepo{}
	}
	if repos.Users == nil {
		repos.Users = &mockUserRepo{}
	}
	cfg := &config.Config{}
	cfg.Bot.OwnerID = 1000
	log := zerolog.Nop()
	return New(cfg, nil, testBundle(t), repos, nil, nil, &log)
}

func TestRegister(t *testing.T) {
	noop := func(ctx context.Context, c *command.Context) error { return nil }

	t.Run("duplicate plugin name", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		err := b.Register(
			&testPlugin{name: "dup"},
			&testPlugin{name: "dup"},
		)
		if !errors.Is(err, derror.ErrExistingPlugin) {
			t.Errorf("error = %v, want ErrExistingPlugin", err)
		}
	})

	t.Run("duplicate command via alias", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		err := b.Register(
			&testPlugin{name: "a", cmds: []command.Spec{{Name: "ban", Handler: noop}}},
			&testPlugin{name: "b", cmds: []command.Spec{{Name: "block", Aliases: []string{"ban"}, Handler: noop}}},
		)
		if !errors.Is(err, derror.ErrExistingCommand) {
			t.Errorf("error = %v, want ErrExistingCommand", err)
		}
	})

	t.Run("help keys are sorted", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		err := b.Register(
			&testPlugin{name: "z", cmds: []command.Spec{{Name: "zcmd", Handler: noop, HelpKey: "zeta-help"}}},
			&testPlugin{name: "a", cmds: []command.Spec{
				{Name: "acmd", Handler: noop, HelpKey: "alpha-help"},
				{Name: "hidden", Handler: noop},
			}},
		)
		if err != nil {
			t.Fatalf("Register error: %v", err)
		}

		keys := b.HelpKeys()
		if len(keys) != 2 || keys[0] != "alpha-help" || keys[1] != "zeta-help" {
			t.Errorf("HelpKeys = %v, want [alpha-help zeta-help]", keys)
		}
	})
}

func TestLang(t *testing.T) {
	t.Run("defaults to english", func(t *testing.T) {
		b := newTestBot(t, Repos{})
		if got := b.Lang(-100); got != "en" {
			t.Errorf("Lang = %q, want en", got)
		}
	})

	t.Run("set and read back", func(t *testing.T) {
		var persisted string
		b := newTestBot(t, Repos{Langs: &mockLangRepo{
			SetFunc: func(ctx context.Context, chatID int64, lang string) error {
				persisted = lang
				return nil
			},
		}})

		if err := b.SetLang(context.Background(), -100, "id"); err != nil {
			t.Fatalf("SetLang error: %v", err)
		}
		if persisted != "id" {
			t.Errorf("persisted lang = %q, want id", persisted)
		}
		if got := b.Lang(-100); got != "id" {
			t.Errorf("Lang = %q, want id", got)
		}
	})

	t.Run("unknown language rejected", func(t *testing.T) {
		b := newTestBot(t, Repos{})
		err := b.SetLang(context.Background(), -100, "xx")
		if !errors.Is(err, derror.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("persistence failure leaves cache untouched", func(t *testing.T) {
		b := newTestBot(t, Repos{Langs: &mockLangRepo{
			SetFunc: func(ctx context.Context, chatID int64, lang string) error {
				return errors.New("db down")
			},
		}})

		if err := b.SetLang(context.Background(), -100, "id"); err == nil {
			t.Fatal("expected error, got nil")
		}
		if got := b.Lang(-100); got != "en" {
			t.Errorf("Lang = %q after failed set, want en", got)
		}
	})
}

func TestStaff(t *testing.T) {
	t.Run("owner is always staff", func(t *testing.T) {
		b := newTestBot(t, Repos{})
		if !b.IsStaff(1000) {
			t.Error("owner not recognized as staff")
		}
		if !b.IsOwner(1000) || b.IsOwner(2000) {
			t.Error("IsOwner misreports")
		}
	})

	t.Run("grant and revoke", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		if b.IsStaff(2000) {
			t.Fatal("unexpected staff before grant")
		}
		if err := b.AddStaff(context.Background(), 2000); err != nil {
			t.Fatalf("AddStaff error: %v", err)
		}
		if !b.IsStaff(2000) {
			t.Error("user not staff after grant")
		}

		if err := b.RemoveStaff(context.Background(), 2000); err != nil {
			t.Fatalf("RemoveStaff error: %v", err)
		}
		if b.IsStaff(2000) {
			t.Error("user still staff after revoke")
		}
	})

	t.Run("staff ids include the owner once", func(t *testing.T) {
		b := newTestBot(t, Repos{})
		if err := b.AddStaff(context.Background(), 1000); err != nil {
			t.Fatalf("AddStaff error: %v", err)
		}
		if err := b.AddStaff(context.Background(), 2000); err != nil {
			t.Fatalf("AddStaff error: %v", err)
		}

		ids := b.StaffIDs()
		if len(ids) != 2 {
			t.Errorf("StaffIDs = %v, want owner and one staff", ids)
		}
	})
}

func targetContext(b *Bot, msg *tgbotapi.Message, args ...string) *command.Context {
	return &command.Context{
		Texter: b.Bundle,
		Msg:    msg,
		Args:   args,
		Lang:   "en",
	}
}

func TestExtractTarget(t *testing.T) {
	baseMsg := func() *tgbotapi.Message {
		return &tgbotapi.Message{
			From: &tgbotapi.User{ID: 100},
			Chat: &tgbotapi.Chat{ID: -200, Type: "supergroup"},
		}
	}

	t.Run("from reply", func(t *testing.T) {
		b := newTestBot(t, Repos{})
		msg := baseMsg()
		msg.ReplyToMessage = &tgbotapi.Message{
			From: &tgbotapi.User{ID: 555, FirstName: "Ada", LastName: "Lovelace"},
		}

		target, err := b.ExtractTarget(context.Background(), targetContext(b, msg, "spam", "reason"))
		if err != nil {
			t.Fatalf("ExtractTarget error: %v", err)
		}
		if target.UserID != 555 || target.Name != "Ada Lovelace" || target.ArgOffset != 0 {
			t.Errorf("target = %+v", target)
		}
	})

	t.Run("from numeric id", func(t *testing.T) {
		b := newTestBot(t, Repos{Users: &mockUserRepo{
			GetFunc: func(ctx context.Context, userID int64) (*mongo.User, error) {
				return &mongo.User{ID: userID, Username: "ada"}, nil
			},
		}})

		target, err := b.ExtractTarget(context.Background(), targetContext(b, baseMsg(), "555", "reason"))
		if err != nil {
			t.Fatalf("ExtractTarget error: %v", err)
		}
		if target.UserID != 555 || target.Name != "@ada" || target.ArgOffset != 1 {
			t.Errorf("target = %+v", target)
		}
	})

	t.Run("from username", func(t *testing.T) {
		b := newTestBot(t, Repos{Users: &mockUserRepo{
			GetByUsernameFunc: func(ctx context.Context, username string) (*mongo.User, error) {
				if username != "@ada" {
					t.Errorf("looked up %q, want @ada", username)
				}
				return &mongo.User{ID: 555, Username: "ada"}, nil
			},
		}})

		target, err := b.ExtractTarget(context.Background(), targetContext(b, baseMsg(), "@ada"))
		if err != nil {
			t.Fatalf("ExtractTarget error: %v", err)
		}
		if target.UserID != 555 || target.ArgOffset != 1 {
			t.Errorf("target = %+v", target)
		}
	})

	t.Run("unknown username", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		_, err := b.ExtractTarget(context.Background(), targetContext(b, baseMsg(), "@ghost"))
		if err == nil {
			t.Fatal("expected error for unseen username, got nil")
		}
		if !strings.Contains(err.Error(), "err-peer-invalid") {
			t.Errorf("error = %v, want the invalid-peer message", err)
		}
	})

	t.Run("nothing to resolve", func(t *testing.T) {
		b := newTestBot(t, Repos{})

		_, err := b.ExtractTarget(context.Background(), targetContext(b, baseMsg()))
		if err == nil {
			t.Fatal("expected error without a target, got nil")
		}
		if !strings.Contains(err.Error(), "err-no-user-specified") {
			t.Errorf("error = %v, want the no-target message", err)
		}
	})
}
