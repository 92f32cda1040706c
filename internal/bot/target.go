package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/userbotindo/anjani/internal/command"
	"github.com/userbotindo/anjani/internal/derror"
	"github.com/userbotindo/anjani/internal/util"
)

// Target is the user a moderation command acts on, with the argument index
// where the free-form part (reason, duration) starts.
type Target struct {
	UserID    int64
	Name      string
	ArgOffset int
}

// ExtractTarget resolves the target user of a command from the replied
// message, a numeric id or an @username argument, in that order. Username
// resolution relies on users the bot has seen before.
func (b *Bot) ExtractTarget(ctx context.Context, c *command.Context) (*Target, error) {
	if reply := c.ReplyMsg(); reply != nil && reply.From != nil {
		return &Target{
			UserID:    reply.From.ID,
			Name:      util.FullName(reply.From.FirstName, reply.From.LastName),
			ArgOffset: 0,
		}, nil
	}

	if len(c.Args) == 0 {
		return nil, errors.New(c.Text("err-no-user-specified"))
	}

	arg := c.Args[0]
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		name := arg
		if user, err := b.DB.Users.Get(ctx, id); err == nil && user.Username != "" {
			name = "@" + user.Username
		}
		return &Target{UserID: id, Name: name, ArgOffset: 1}, nil
	}

	if strings.HasPrefix(arg, "@") {
		u, err := b.DB.Users.GetByUsername(ctx, arg)
		if errors.Is(err, derror.ErrNotFound) {
			return nil, errors.New(c.Text("err-peer-invalid"))
		}
		if err != nil {
			return nil, err
		}
		return &Target{UserID: u.ID, Name: arg, ArgOffset: 1}, nil
	}

	return nil, errors.New(c.Text("err-no-user-specified"))
}
