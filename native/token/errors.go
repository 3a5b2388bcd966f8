package token

import "errors"

var (
	ErrAssetNotFound       = errors.New("token: asset not found")
	ErrMintUnauthorized    = errors.New("token: mint authority mismatch")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrSupplyOverflow      = errors.New("token: supply overflow")
	ErrInvalidAuthority    = errors.New("token: invalid authority")
)
