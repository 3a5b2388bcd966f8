package rewards

import (
	"cepchain/native/community"
	"cepchain/native/token"
)

// ID uniquely identifies a reward definition.
type ID [32]byte

// Variant tags the reward's asset backing. The variant is fixed at creation
// and every read site switches on it exhaustively.
type Variant uint8

const (
	// VariantFungible is backed by a fungible asset with a declared supply cap.
	VariantFungible Variant = iota
	// VariantNonFungible is backed by an asset issued as numbered instances.
	VariantNonFungible
)

// Reward defines a fungible or non-fungible reward scoped to a community.
// Supply and IssuedUnits are meaningful for fungible rewards; MetadataURI for
// non-fungible ones. IssuedCount counts issuance events for both variants and
// doubles as the token-id sequence for non-fungible instances.
type Reward struct {
	ID          ID
	Community   community.ID
	Name        string
	Description string
	Variant     Variant
	Asset       token.AssetID
	Supply      uint64
	MetadataURI string
	IssuedCount uint64
	IssuedUnits uint64
	CreatedAt   uint64
	UpdatedAt   uint64
}

// UserReward records a fungible issuance to a user.
type UserReward struct {
	User      [20]byte
	Reward    ID
	Community community.ID
	Amount    uint64
	AwardedAt uint64
}

// Instance is one issued non-fungible reward, keyed by (reward, token id).
// Token ids are strictly increasing per reward.
type Instance struct {
	Reward   ID
	Owner    [20]byte
	TokenID  uint64
	IssuedAt uint64
}

// UserRewardIndex orders a user's received reward references.
type UserRewardIndex struct {
	User    [20]byte
	Rewards [][32]byte
}
