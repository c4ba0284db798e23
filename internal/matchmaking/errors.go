package matchmaking

import "errors"

var (
	ErrEmptyUserID    = errors.New("user id is empty")
	ErrSelfMatch      = errors.New("cannot match a user with itself")
	ErrAlreadyMatched = errors.New("user already has an active match")
	ErrRoomTaken      = errors.New("room already belongs to another match")
)
