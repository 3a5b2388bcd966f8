package achievement

import (
	"cepchain/native/community"
	"cepchain/native/token"
)

// ID uniquely identifies an achievement definition.
type ID [32]byte

// Variant tags the achievement's asset backing. The variant is fixed at
// creation and every read site switches on it exhaustively.
type Variant uint8

const (
	// VariantPlain is a points-only achievement with no backing asset.
	VariantPlain Variant = iota
	// VariantFungible is backed by a fungible asset minted one unit per award.
	VariantFungible
	// VariantNonFungible is backed by a master edition; each award mints a
	// numbered print.
	VariantNonFungible
)

// Achievement defines a point-bearing achievement scoped to a community.
// Asset, Supply, EditionCount and MetadataURI are meaningful only for the
// variants that declare them.
type Achievement struct {
	ID           ID
	Community    community.ID
	Name         string
	Description  string
	Criteria     string
	Points       uint32
	Variant      Variant
	Asset        token.AssetID
	Supply       uint64
	EditionCount uint64
	MetadataURI  string
	CreatedAt    uint64
	UpdatedAt    uint64
}

// UserAward proves an achievement was granted to a user. Records are
// append-only and never mutated after creation.
type UserAward struct {
	User        [20]byte
	Achievement ID
	Community   community.ID
	AwardedAt   uint64
}

// UserAwardIndex orders a user's awarded achievement references. It is
// created explicitly before the first award; duplicate references are legal
// because nothing marks an award unique per (user, achievement).
type UserAwardIndex struct {
	User         [20]byte
	Achievements [][32]byte
}
