package token

// AssetID uniquely identifies a fungible or non-fungible asset managed by the
// issuance ledger. Identifiers are derived from a monotonic counter at
// creation time and are opaque to callers.
type AssetID [32]byte

// Asset captures the issuance configuration and running supply of one asset.
type Asset struct {
	ID              AssetID
	Decimals        uint8
	MintAuthority   [20]byte
	FreezeAuthority [20]byte
	Supply          uint64
}

// Holder records that an owner has an account for an asset. Balances are
// tracked separately so holder creation stays idempotent.
type Holder struct {
	Asset AssetID
	Owner [20]byte
}
