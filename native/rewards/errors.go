package rewards

import "errors"

var (
	ErrFieldTooLong       = errors.New("rewards: field too long")
	ErrRewardNotFound     = errors.New("rewards: not found")
	ErrInvalidRewardType  = errors.New("rewards: invalid reward type")
	ErrInsufficientSupply = errors.New("rewards: insufficient reward supply")
	ErrIndexNotFound      = errors.New("rewards: user reward index not found")
	ErrAlreadyInitialized = errors.New("rewards: user reward index already initialized")
	ErrIndexFull          = errors.New("rewards: user reward index capacity reached")
)
