package achievement

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
	moduleName = "achievement"

	maxNameLen        = 50
	maxDescriptionLen = 200
	maxURILen         = 200
	maxIndexEntries   = 200
)

var (
	errNilState     = errors.New("achievement engine: state not configured")
	errNilCommunity = errors.New("achievement engine: community registry not configured")
	errNilToken     = errors.New("achievement engine: token service not configured")
	errNilMetadata  = errors.New("achievement engine: metadata service not configured")
	errNilAuthority = errors.New("achievement engine: mint authority not configured")
)

var (
	achievementPref = []byte("achievement/record/")
	awardPrefix     = []byte("achievement/award/")
	userIndexPrefix = []byte("achievement/user-index/")
	counterKey      = []byte("achievement/id-counter")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type communityView interface {
	Authorize(caller [20]byte, id community.ID) error
	AppendAchievementRef(id community.ID, ref [32]byte) error
}

type tokenService interface {
	CreateAsset(decimals uint8, mintAuthority, freezeAuthority [20]byte) (token.AssetID, error)
	Mint(asset token.AssetID, authority, dest [20]byte, amount uint64) error
	Transfer(asset token.AssetID, from, to [20]byte, amount uint64) error
}

type metadataService interface {
	CreateMetadata(asset token.AssetID, name, symbol, uri string, mutable bool, updateAuthority [20]byte) error
	CreateMasterEdition(asset token.AssetID, capped bool, maxSupply uint64) error
	MintNewEdition(master, newAsset token.AssetID, number uint64) error
}

// Engine manages the achievement catalog and the per-user award ledger. The
// token and metadata services are invoked as indivisible sub-steps of each
// operation; the caller runs every operation inside one state transition so a
// failure anywhere leaves no partial state behind.
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

// NewEngine creates an achievement engine with a no-op emitter. Callers wire
// the state backend and collaborating services via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(st engineState) { e.st = st }

// SetCommunities configures the community registry used for authorization and
// catalog registration.
func (e *Engine) SetCommunities(view communityView) { e.communities = view }

// SetTokenService configures the token-issuance service.
func (e *Engine) SetTokenService(svc tokenService) { e.tokens = svc }

// SetMetadataService configures the metadata-registry service.
func (e *Engine) SetMetadataService(svc metadataService) { e.metadata = svc }

// SetAuthority configures the identity the engine uses as mint and update
// authority for the assets it creates.
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

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	return uint64(e.nowFn())
}

func (e *Engine) emit(event events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) ready(needAssets bool) error {
	if e.st == nil {
		return errNilState
	}
	if e.communities == nil {
		return errNilCommunity
	}
	if !needAssets {
		return nil
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
	return nil
}

func achievementKey(id ID) []byte {
	key := make([]byte, len(achievementPref)+len(id))
	copy(key, achievementPref)
	copy(key[len(achievementPref):], id[:])
	return key
}

func awardKey(user [20]byte, seq uint64) []byte {
	key := make([]byte, len(awardPrefix)+len(user)+8)
	copy(key, awardPrefix)
	copy(key[len(awardPrefix):], user[:])
	binary.BigEndian.PutUint64(key[len(awardPrefix)+len(user):], seq)
	return key
}

func userIndexKey(user [20]byte) []byte {
	key := make([]byte, len(userIndexPrefix)+len(user))
	copy(key, userIndexPrefix)
	copy(key[len(userIndexPrefix):], user[:])
	return key
}

func validateFields(name, description string) error {
	if len([]rune(name)) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrFieldTooLong, maxNameLen)
	}
	if len([]rune(description)) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrFieldTooLong, maxDescriptionLen)
	}
	return nil
}

func (e *Engine) nextID() (ID, error) {
	var counter uint64
	if _, err := e.st.KVGet(counterKey, &counter); err != nil {
		return ID{}, err
	}
	counter++
	if err := e.st.KVPut(counterKey, counter); err != nil {
		return ID{}, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	var id ID
	copy(id[:], ethcrypto.Keccak256([]byte("achievement/id"), buf[:]))
	return id, nil
}

func (e *Engine) register(a *Achievement) error {
	if err := e.st.KVPut(achievementKey(a.ID), a); err != nil {
		return err
	}
	if err := e.communities.AppendAchievementRef(a.Community, a.ID); err != nil {
		return err
	}
	e.emit(events.AchievementCreated{
		ID:        a.ID,
		Community: a.Community,
		Name:      a.Name,
		Points:    a.Points,
		Variant:   uint8(a.Variant),
	})
	return nil
}

// CreatePlain defines a points-only achievement for the community.
func (e *Engine) CreatePlain(caller [20]byte, communityID community.ID, name, description, criteria string, points uint32) (ID, error) {
	if err := e.ready(false); err != nil {
		return ID{}, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ID{}, err
	}
	if err := validateFields(name, description); err != nil {
		return ID{}, err
	}
	if err := e.communities.Authorize(caller, communityID); err != nil {
		return ID{}, err
	}
	id, err := e.nextID()
	if err != nil {
		return ID{}, err
	}
	now := e.now()
	a := &Achievement{
		ID:          id,
		Community:   communityID,
		Name:        name,
		Description: description,
		Criteria:    criteria,
		Points:      points,
		Variant:     VariantPlain,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.register(a); err != nil {
		return ID{}, err
	}
	return id, nil
}

// CreateFungible defines an achievement backed by a fungible asset. The asset
// is created by the token-issuance service as part of this operation.
func (e *Engine) CreateFungible(caller [20]byte, communityID community.ID, name, description, criteria string, points uint32, supply uint64) (ID, error) {
	if err := e.ready(true); err != nil {
		return ID{}, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ID{}, err
	}
	if err := validateFields(name, description); err != nil {
		return ID{}, err
	}
	if err := e.communities.Authorize(caller, communityID); err != nil {
		return ID{}, err
	}
	asset, err := e.tokens.CreateAsset(0, e.authority, e.authority)
	if err != nil {
		return ID{}, err
	}
	id, err := e.nextID()
	if err != nil {
		return ID{}, err
	}
	now := e.now()
	a := &Achievement{
		ID:          id,
		Community:   communityID,
		Name:        name,
		Description: description,
		Criteria:    criteria,
		Points:      points,
		Variant:     VariantFungible,
		Asset:       asset,
		Supply:      supply,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.register(a); err != nil {
		return ID{}, err
	}
	return id, nil
}

// CreateNonFungible defines an achievement backed by a master edition. The
// asset, its metadata record and the master issuance record are created by
// the external services as indivisible steps of this operation.
func (e *Engine) CreateNonFungible(caller [20]byte, communityID community.ID, name, description, criteria string, points uint32, metadataURI string) (ID, error) {
	if err := e.ready(true); err != nil {
		return ID{}, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ID{}, err
	}
	if err := validateFields(name, description); err != nil {
		return ID{}, err
	}
	if len([]rune(metadataURI)) > maxURILen {
		return ID{}, fmt.Errorf("%w: metadata URI exceeds %d characters", ErrFieldTooLong, maxURILen)
	}
	if err := e.communities.Authorize(caller, communityID); err != nil {
		return ID{}, err
	}
	asset, err := e.tokens.CreateAsset(0, e.authority, e.authority)
	if err != nil {
		return ID{}, err
	}
	if err := e.metadata.CreateMetadata(asset, name, "", metadataURI, true, e.authority); err != nil {
		return ID{}, err
	}
	if err := e.metadata.CreateMasterEdition(asset, false, 0); err != nil {
		return ID{}, err
	}
	id, err := e.nextID()
	if err != nil {
		return ID{}, err
	}
	now := e.now()
	a := &Achievement{
		ID:          id,
		Community:   communityID,
		Name:        name,
		Description: description,
		Criteria:    criteria,
		Points:      points,
		Variant:     VariantNonFungible,
		Asset:       asset,
		MetadataURI: metadataURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.register(a); err != nil {
		return ID{}, err
	}
	return id, nil
}

// Get retrieves an achievement by its identifier.
func (e *Engine) Get(id ID) (*Achievement, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(Achievement)
	ok, err := e.st.KVGet(achievementKey(id), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// InitUserIndex creates the award index for a user. Awards against a user
// without an index are rejected, so the index must exist first.
func (e *Engine) InitUserIndex(user [20]byte) error {
	if e.st == nil {
		return errNilState
	}
	exists, err := e.st.KVGet(userIndexKey(user), new(UserAwardIndex))
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	return e.st.KVPut(userIndexKey(user), &UserAwardIndex{User: user, Achievements: [][32]byte{}})
}

func (e *Engine) loadUserIndex(user [20]byte) (*UserAwardIndex, error) {
	idx := new(UserAwardIndex)
	found, err := e.st.KVGet(userIndexKey(user), idx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIndexNotFound
	}
	return idx, nil
}

// Award grants the achievement to the user: one UserAward record, one index
// entry, and for asset-backed variants the corresponding issuance calls. The
// user's community is derived from the achievement so the award can never
// reference a mismatched pair. Duplicate awards are allowed.
func (e *Engine) Award(caller [20]byte, id ID, user [20]byte) (*UserAward, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	a, ok := e.Get(id)
	if !ok {
		return nil, ErrAchievementNotFound
	}
	if err := e.communities.Authorize(caller, a.Community); err != nil {
		return nil, err
	}
	idx, err := e.loadUserIndex(user)
	if err != nil {
		return nil, err
	}
	if len(idx.Achievements) >= maxIndexEntries {
		return nil, ErrIndexFull
	}
	var edition uint64
	switch a.Variant {
	case VariantPlain:
		// Points only; nothing to issue.
	case VariantFungible:
		if err := e.ready(true); err != nil {
			return nil, err
		}
		if err := e.tokens.Mint(a.Asset, e.authority, user, 1); err != nil {
			return nil, err
		}
	case VariantNonFungible:
		if err := e.ready(true); err != nil {
			return nil, err
		}
		edition = a.EditionCount + 1
		editionAsset, err := e.tokens.CreateAsset(0, e.authority, e.authority)
		if err != nil {
			return nil, err
		}
		if err := e.metadata.MintNewEdition(a.Asset, editionAsset, edition); err != nil {
			return nil, err
		}
		if err := e.tokens.Mint(editionAsset, e.authority, e.authority, 1); err != nil {
			return nil, err
		}
		if err := e.tokens.Transfer(editionAsset, e.authority, user, 1); err != nil {
			return nil, err
		}
		a.EditionCount = edition
		a.UpdatedAt = e.now()
		if err := e.st.KVPut(achievementKey(a.ID), a); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("achievement: unknown variant %d", a.Variant)
	}
	seq := uint64(len(idx.Achievements))
	award := &UserAward{
		User:        user,
		Achievement: id,
		Community:   a.Community,
		AwardedAt:   e.now(),
	}
	if err := e.st.KVPut(awardKey(user, seq), award); err != nil {
		return nil, err
	}
	idx.Achievements = append(idx.Achievements, id)
	if err := e.st.KVPut(userIndexKey(user), idx); err != nil {
		return nil, err
	}
	e.emit(events.AchievementAwarded{ID: id, Community: a.Community, User: user, Edition: edition})
	return award, nil
}

// ListUserAchievements returns the achievement references awarded to the
// user, oldest first. Duplicates appear once per award.
func (e *Engine) ListUserAchievements(user [20]byte) ([][32]byte, error) {
	if e.st == nil {
		return nil, errNilState
	}
	idx, err := e.loadUserIndex(user)
	if err != nil {
		return nil, err
	}
	return append([][32]byte{}, idx.Achievements...), nil
}

// UserAwardAt returns the nth award record for the user.
func (e *Engine) UserAwardAt(user [20]byte, seq uint64) (*UserAward, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(UserAward)
	ok, err := e.st.KVGet(awardKey(user, seq), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}
