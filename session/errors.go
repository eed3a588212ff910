package session

import (
	"errors"
	"fmt"
)

// 本地前置条件错误，不产生网络请求
var (
	ErrNoSession        = errors.New("not in a game session")
	ErrAlreadyInSession = errors.New("already in a game session")
	ErrMissingGameID    = errors.New("game id is required")
	ErrNoIdentity       = errors.New("no local identity")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCannotRoll       = errors.New("dice cannot be rolled now")
	ErrTokenNotFound    = errors.New("token not found")
	ErrNotYourToken     = errors.New("token belongs to another player")
	ErrIllegalMove      = errors.New("illegal move")
	ErrNotSpectating    = errors.New("not spectating a game")
	ErrInvalidGame      = errors.New("authority returned an invalid game")
)

// RejectionError is an explicit "success: false" answer from the authority.
type RejectionError struct {
	Op      string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// IsRejection reports whether err carries an authority rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
