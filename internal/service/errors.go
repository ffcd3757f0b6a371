package service

import "errors"

// Sentinel errors surfaced to callers. Handlers map these onto HTTP
// status codes; anything else is an internal failure with a generic
// message.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrActiveExists     = errors.New("creator already has an active meetup")
	ErrTooSoon          = errors.New("meeting time must be at least 5 minutes from now")
	ErrChatClosed       = errors.New("chat room is not open")
)
