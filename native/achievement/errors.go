package achievement

import "errors"

var (
	ErrFieldTooLong        = errors.New("achievement: field too long")
	ErrAchievementNotFound = errors.New("achievement: not found")
	ErrIndexNotFound       = errors.New("achievement: user award index not found")
	ErrAlreadyInitialized  = errors.New("achievement: user award index already initialized")
	ErrIndexFull           = errors.New("achievement: user award index capacity reached")
)
