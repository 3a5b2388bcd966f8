package membership

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"cepchain/core/events"
	nativecommon "cepchain/native/common"
	"cepchain/native/community"
	"cepchain/native/token"
)

const (
	moduleName = "membership"

	maxNameLen   = 50
	maxSymbolLen = 10
	maxTierIDLen = 10
	maxURILen    = 200
)

var (
	errNilState     = errors.New("membership engine: state not configured")
	errNilCommunity = errors.New("membership engine: community registry not configured")
	errNilToken     = errors.New("membership engine: token service not configured")
	errNilMetadata  = errors.New("membership engine: metadata service not configured")
	errNilAuthority = errors.New("membership engine: mint authority not configured")
)

var catalogPrefix = []byte("membership/catalog/")

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type communityView interface {
	Authorize(caller [20]byte, id community.ID) error
	AppendMembershipRef(id community.ID, ref [32]byte) error
}

type tokenService interface {
	CreateAsset(decimals uint8, mintAuthority, freezeAuthority [20]byte) (token.AssetID, error)
	Mint(asset token.AssetID, authority, dest [20]byte, amount uint64) error
}

type metadataService interface {
	CreateMetadata(asset token.AssetID, name, symbol, uri string, mutable bool, updateAuthority [20]byte) error
	CreateMasterEdition(asset token.AssetID, capped bool, maxSupply uint64) error
}

// Engine manages membership catalogs, their tiers and membership minting.
type Engine struct {
	st          engineState
	communities communityView
	tokens      tokenService
	metadata    metadataService
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	authority   [20]byte
	nowFn       func() int64
}

// NewEngine creates a membership engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st engineState) { e.st = st }

// SetCommunities configures the community registry used for authorization.
func (e *Engine) SetCommunities(view communityView) { e.communities = view }

// SetTokenService configures the token-issuance service.
func (e *Engine) SetTokenService(svc tokenService) { e.tokens = svc }

// SetMetadataService configures the metadata-registry service.
func (e *Engine) SetMetadataService(svc metadataService) { e.metadata = svc }

// SetAuthority configures the identity used as mint and update authority for
// minted membership assets.
func (e *Engine) SetAuthority(addr [20]byte) { e.authority = addr }

// SetPauses configures the pause view guarding mutating operations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func catalogKey(id CatalogID) []byte {
	key := make([]byte, len(catalogPrefix)+len(id))
	copy(key, catalogPrefix)
	copy(key[len(catalogPrefix):], id[:])
	return key
}

// DeriveCatalogID computes the catalog identifier for a community and
// membership id pair.
func DeriveCatalogID(communityID community.ID, membershipID uint64) CatalogID {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], membershipID)
	var id CatalogID
	copy(id[:], ethcrypto.Keccak256([]byte("membership/catalog"), communityID[:], buf[:]))
	return id
}

// InitializeCatalog creates a membership catalog under the community. The
// caller must be authorized by the community policy and becomes the catalog's
// admin for tier management and minting.
func (e *Engine) InitializeCatalog(caller [20]byte, communityID community.ID, membershipID uint64, name, symbol, baseURI string, maxSupply uint64, elastic bool, maxTiers uint8) (CatalogID, error) {
	if e.st == nil {
		return CatalogID{}, errNilState
	}
	if e.communities == nil {
		return CatalogID{}, errNilCommunity
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return CatalogID{}, err
	}
	if len([]rune(name)) > maxNameLen {
		return CatalogID{}, fmt.Errorf("%w: name exceeds %d characters", ErrFieldTooLong, maxNameLen)
	}
	if len([]rune(symbol)) > maxSymbolLen {
		return CatalogID{}, fmt.Errorf("%w: symbol exceeds %d characters", ErrFieldTooLong, maxSymbolLen)
	}
	if len([]rune(baseURI)) > maxURILen {
		return CatalogID{}, fmt.Errorf("%w: base URI exceeds %d characters", ErrFieldTooLong, maxURILen)
	}
	if err := e.communities.Authorize(caller, communityID); err != nil {
		return CatalogID{}, err
	}
	id := DeriveCatalogID(communityID, membershipID)
	exists, err := e.st.KVGet(catalogKey(id), new(Catalog))
	if err != nil {
		return CatalogID{}, err
	}
	if exists {
		return CatalogID{}, ErrCatalogExists
	}
	catalog := &Catalog{
		ID:           id,
		Community:    communityID,
		MembershipID: membershipID,
		Name:         name,
		Symbol:       symbol,
		BaseURI:      baseURI,
		MaxSupply:    maxSupply,
		Elastic:      elastic,
		MaxTiers:     maxTiers,
		Admin:        caller,
		Tiers:        []Tier{},
	}
	if err := e.st.KVPut(catalogKey(id), catalog); err != nil {
		return CatalogID{}, err
	}
	if err := e.communities.AppendMembershipRef(communityID, id); err != nil {
		return CatalogID{}, err
	}
	e.emit(events.MembershipCatalogCreated{ID: id, Community: communityID, Name: name, MaxSupply: maxSupply})
	return id, nil
}

// Get retrieves a catalog by its identifier.
func (e *Engine) Get(id CatalogID) (*Catalog, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(Catalog)
	ok, err := e.st.KVGet(catalogKey(id), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// CreateTier appends a tier to the catalog. Only the catalog admin may add
// tiers; tier identifiers are unique within a catalog and the tier list is
// bounded by the catalog's MaxTiers.
func (e *Engine) CreateTier(caller [20]byte, id CatalogID, tierID string, duration uint64, isOpen bool, tierURI string) error {
	if e.st == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if len([]rune(tierID)) > maxTierIDLen {
		return fmt.Errorf("%w: tier id exceeds %d characters", ErrFieldTooLong, maxTierIDLen)
	}
	if len([]rune(tierURI)) > maxURILen {
		return fmt.Errorf("%w: tier URI exceeds %d characters", ErrFieldTooLong, maxURILen)
	}
	catalog, ok := e.Get(id)
	if !ok {
		return ErrCatalogNotFound
	}
	if catalog.Admin != caller {
		return ErrUnauthorized
	}
	if len(catalog.Tiers) >= int(catalog.MaxTiers) {
		return ErrMaxTiersReached
	}
	for _, tier := range catalog.Tiers {
		if tier.TierID == tierID {
			return ErrTierExists
		}
	}
	catalog.Tiers = append(catalog.Tiers, Tier{
		TierID:   tierID,
		Duration: duration,
		IsOpen:   isOpen,
		TierURI:  tierURI,
	})
	if err := e.st.KVPut(catalogKey(id), catalog); err != nil {
		return err
	}
	e.emit(events.MembershipTierCreated{Catalog: id, TierID: tierID})
	return nil
}

// Mint issues one membership token of the addressed tier to the recipient:
// a fresh asset, one minted unit, a metadata record whose URI is the base URI
// with the tier fragment appended, and a single-print master edition. The
// minted counter advances only after every external step succeeded.
func (e *Engine) Mint(caller [20]byte, id CatalogID, tierIndex uint8, recipient [20]byte) error {
	if e.st == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilToken
	}
	if e.metadata == nil {
		return errNilMetadata
	}
	if e.authority == ([20]byte{}) {
		return errNilAuthority
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	catalog, ok := e.Get(id)
	if !ok {
		return ErrCatalogNotFound
	}
	if catalog.Admin != caller {
		return ErrUnauthorized
	}
	if catalog.TotalMinted >= catalog.MaxSupply {
		return ErrMaxSupplyReached
	}
	if int(tierIndex) >= len(catalog.Tiers) {
		return ErrInvalidTierIndex
	}
	tier := catalog.Tiers[tierIndex]
	asset, err := e.tokens.CreateAsset(0, e.authority, e.authority)
	if err != nil {
		return err
	}
	if err := e.tokens.Mint(asset, e.authority, recipient, 1); err != nil {
		return err
	}
	uri := catalog.BaseURI + tier.TierURI
	if err := e.metadata.CreateMetadata(asset, catalog.Name, catalog.Symbol, uri, true, e.authority); err != nil {
		return err
	}
	if err := e.metadata.CreateMasterEdition(asset, true, 1); err != nil {
		return err
	}
	catalog.TotalMinted++
	if err := e.st.KVPut(catalogKey(id), catalog); err != nil {
		return err
	}
	e.emit(events.MembershipMinted{
		Catalog:   id,
		TierID:    tier.TierID,
		Recipient: recipient,
		Minted:    catalog.TotalMinted,
	})
	return nil
}
