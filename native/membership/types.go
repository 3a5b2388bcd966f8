package membership

import "cepchain/native/community"

// CatalogID uniquely identifies a membership catalog. It is derived from the
// owning community and the caller-supplied membership identifier.
type CatalogID [32]byte

// Tier describes one membership level within a catalog.
type Tier struct {
	TierID   string
	Duration uint64
	IsOpen   bool
	TierURI  string
}

// Catalog is a tiered membership definition scoped to a community. The token
// URI for a minted membership is BaseURI with the addressed tier's fragment
// appended.
type Catalog struct {
	ID           CatalogID
	Community    community.ID
	MembershipID uint64
	Name         string
	Symbol       string
	BaseURI      string
	MaxSupply    uint64
	Elastic      bool
	MaxTiers     uint8
	TotalMinted  uint64
	TotalBurned  uint64
	Admin        [20]byte
	Tiers        []Tier
}
