//go:build !integration

package plugins

import (
	"context"
	"errors"
	"testing"
)

type mockAdminLookup struct {
	IsAdminFunc func(ctx context.Context, chatID, userID int64) (bool, error)
}

func (m *mockAdminLookup) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if m.IsAdminFunc != nil {
		return m.IsAdminFunc(ctx, chatID, userID)
	}
	return false, nil
}

func TestRestrictionProtected(t *testing.T) {
	ctx := context.Background()
	isStaff := func(id int64) bool { return id == 42 }
	const selfID = int64(99)
	const chatID = int64(-100200)

	t.Run("staff target skips the admin lookup", func(t *testing.T) {
		admins := &mockAdminLookup{
			IsAdminFunc: func(context.Context, int64, int64) (bool, error) {
				t.Error("IsAdmin called for a staff target")
				return false, nil
			},
		}

		protected, err := restrictionProtected(ctx, admins, isStaff, selfID, chatID, 42)
		if err != nil {
			t.Fatalf("restrictionProtected error: %v", err)
		}
		if !protected {
			t.Error("staff target not protected")
		}
	})

	t.Run("the bot itself is protected", func(t *testing.T) {
		protected, err := restrictionProtected(ctx, &mockAdminLookup{}, isStaff, selfID, chatID, selfID)
		if err != nil {
			t.Fatalf("restrictionProtected error: %v", err)
		}
		if !protected {
			t.Error("self target not protected")
		}
	})

	t.Run("chat admin is protected", func(t *testing.T) {
		admins := &mockAdminLookup{
			IsAdminFunc: func(_ context.Context, gotChat, gotUser int64) (bool, error) {
				if gotChat != chatID || gotUser != 7 {
					t.Errorf("IsAdmin(%d, %d), want (%d, 7)", gotChat, gotUser, chatID)
				}
				return true, nil
			},
		}

		protected, err := restrictionProtected(ctx, admins, isStaff, selfID, chatID, 7)
		if err != nil {
			t.Fatalf("restrictionProtected error: %v", err)
		}
		if !protected {
			t.Error("admin target not protected")
		}
	})

	t.Run("plain member is fair game", func(t *testing.T) {
		protected, err := restrictionProtected(ctx, &mockAdminLookup{}, isStaff, selfID, chatID, 7)
		if err != nil {
			t.Fatalf("restrictionProtected error: %v", err)
		}
		if protected {
			t.Error("plain member reported protected")
		}
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		wantErr := errors.New("member lookup timed out")
		admins := &mockAdminLookup{
			IsAdminFunc: func(context.Context, int64, int64) (bool, error) {
				return false, wantErr
			},
		}

		if _, err := restrictionProtected(ctx, admins, isStaff, selfID, chatID, 7); !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
	})
}
