package metadata

import "cepchain/native/token"

// Record is the descriptive metadata stored for one asset. The registry is
// the sole source of truth for these fields; the engagement engines only
// supply them.
type Record struct {
	Asset           token.AssetID
	Name            string
	Symbol          string
	URI             string
	Mutable         bool
	UpdateAuthority [20]byte
}

// MasterEdition tracks the edition issuance of a non-fungible asset. Minted
// only ever grows; Capped bounds it when set.
type MasterEdition struct {
	Asset  token.AssetID
	Capped bool
	Max    uint64
	Minted uint64
}

// Edition is one numbered print of a master edition, bound to its own asset.
type Edition struct {
	Master token.AssetID
	Asset  token.AssetID
	Number uint64
}
