package derror

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrExistingCommand    = errors.New("command already registered")
	ErrExistingPlugin     = errors.New("plugin already loaded")
	ErrUserNotParticipant = errors.New("user is not a member of this chat")
	ErrInvalidTimeFlag    = errors.New("invalid time flag")
	ErrFedExists          = errors.New("user already owns a federation")
	ErrRateLimited        = errors.New("rate limited")
)
