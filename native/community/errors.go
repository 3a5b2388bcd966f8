package community

import "errors"

var (
	ErrFieldTooLong       = errors.New("community: field too long")
	ErrTooManyTags        = errors.New("community: too many tags")
	ErrUnauthorized       = errors.New("community: unauthorized")
	ErrAdminExists        = errors.New("community: admin already exists")
	ErrAdminNotFound      = errors.New("community: admin not found")
	ErrLastAdminProtected = errors.New("community: cannot remove last admin")
	ErrCommunityNotFound  = errors.New("community: not found")
	ErrAlreadyInitialized = errors.New("community: already initialized")
	ErrNotInitialized     = errors.New("community: global state not initialized")
	ErrInvalidAdmin       = errors.New("community: invalid admin identity")
	ErrIndexFull          = errors.New("community: index capacity reached")
	ErrInvalidPolicy      = errors.New("community: invalid authority policy")
)
