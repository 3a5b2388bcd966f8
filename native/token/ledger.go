package token

import (
	"encoding/binary"
	"fmt"
	"math"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	assetPrefix   = []byte("token/asset/")
	balancePrefix = []byte("token/balance/")
	holderPrefix  = []byte("token/holder/")
	counterKey    = []byte("token/asset-counter")
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger is the token-issuance service backing asset-backed achievements,
// memberships and rewards. It tracks asset records and per-holder balances in
// the same keyed state as the rest of the module; the engagement engines call
// it as an indivisible sub-step of their own operations.
type Ledger struct {
	st ledgerState
}

// NewLedger creates a token ledger backed by the provided state manager.
func NewLedger(st ledgerState) *Ledger {
	return &Ledger{st: st}
}

func assetKey(id AssetID) []byte {
	key := make([]byte, len(assetPrefix)+len(id))
	copy(key, assetPrefix)
	copy(key[len(assetPrefix):], id[:])
	return key
}

func balanceKey(id AssetID, owner [20]byte) []byte {
	key := make([]byte, len(balancePrefix)+len(id)+len(owner))
	copy(key, balancePrefix)
	copy(key[len(balancePrefix):], id[:])
	copy(key[len(balancePrefix)+len(id):], owner[:])
	return key
}

func holderKey(id AssetID, owner [20]byte) []byte {
	key := make([]byte, len(holderPrefix)+len(id)+len(owner))
	copy(key, holderPrefix)
	copy(key[len(holderPrefix):], id[:])
	copy(key[len(holderPrefix)+len(id):], owner[:])
	return key
}

// CreateAsset registers a new asset with the provided issuance configuration
// and returns its identifier. Asset identifiers are derived from a monotonic
// counter so repeated creations never collide.
func (l *Ledger) CreateAsset(decimals uint8, mintAuthority, freezeAuthority [20]byte) (AssetID, error) {
	var zero AssetID
	if mintAuthority == ([20]byte{}) {
		return zero, fmt.Errorf("%w: mint authority required", ErrInvalidAuthority)
	}
	var counter uint64
	if _, err := l.st.KVGet(counterKey, &counter); err != nil {
		return zero, err
	}
	counter++
	if err := l.st.KVPut(counterKey, counter); err != nil {
		return zero, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	var id AssetID
	copy(id[:], ethcrypto.Keccak256([]byte("token/asset"), mintAuthority[:], buf[:]))
	asset := &Asset{
		ID:              id,
		Decimals:        decimals,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}
	if err := l.st.KVPut(assetKey(id), asset); err != nil {
		return zero, err
	}
	return id, nil
}

// Asset retrieves an asset record by its identifier.
func (l *Ledger) Asset(id AssetID) (*Asset, bool) {
	out := new(Asset)
	ok, err := l.st.KVGet(assetKey(id), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// EnsureHolderAccount creates the holder record for (asset, owner) when it
// does not exist. The operation is idempotent.
func (l *Ledger) EnsureHolderAccount(id AssetID, owner [20]byte) error {
	if _, ok := l.Asset(id); !ok {
		return ErrAssetNotFound
	}
	exists, err := l.st.KVGet(holderKey(id, owner), new(Holder))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return l.st.KVPut(holderKey(id, owner), &Holder{Asset: id, Owner: owner})
}

// BalanceOf reports the balance an owner holds for an asset.
func (l *Ledger) BalanceOf(id AssetID, owner [20]byte) uint64 {
	var balance uint64
	ok, err := l.st.KVGet(balanceKey(id, owner), &balance)
	if err != nil || !ok {
		return 0
	}
	return balance
}

// Mint issues amount units of the asset to the destination owner. The caller
// must be the asset's mint authority. Destination holder accounts are created
// on demand, mirroring the issuance service's create-or-get contract.
func (l *Ledger) Mint(id AssetID, authority, dest [20]byte, amount uint64) error {
	asset, ok := l.Asset(id)
	if !ok {
		return ErrAssetNotFound
	}
	if asset.MintAuthority != authority {
		return ErrMintUnauthorized
	}
	if asset.Supply > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if err := l.EnsureHolderAccount(id, dest); err != nil {
		return err
	}
	balance := l.BalanceOf(id, dest)
	if balance > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	asset.Supply += amount
	if err := l.st.KVPut(assetKey(id), asset); err != nil {
		return err
	}
	return l.st.KVPut(balanceKey(id, dest), balance+amount)
}

// Transfer moves amount units of the asset between holders.
func (l *Ledger) Transfer(id AssetID, from, to [20]byte, amount uint64) error {
	if _, ok := l.Asset(id); !ok {
		return ErrAssetNotFound
	}
	fromBalance := l.BalanceOf(id, from)
	if fromBalance < amount {
		return ErrInsufficientBalance
	}
	if err := l.EnsureHolderAccount(id, to); err != nil {
		return err
	}
	toBalance := l.BalanceOf(id, to)
	if toBalance > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if err := l.st.KVPut(balanceKey(id, from), fromBalance-amount); err != nil {
		return err
	}
	return l.st.KVPut(balanceKey(id, to), toBalance+amount)
}
