package rewards

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
	moduleName = "rewards"

	maxNameLen        = 50
	maxDescriptionLen = 200
	maxURILen         = 200
	maxIndexEntries   = 200
)

var (
	errNilState     = errors.New("rewards engine: state not configured")
	errNilCommunity = errors.New("rewards engine: community registry not configured")
	errNilToken     = errors.New("rewards engine: token service not configured")
	errNilMetadata  = errors.New("rewards engine: metadata service not configured")
	errNilAuthority = errors.New("rewards engine: mint authority not configured")
)

var (
	rewardPrefix    = []byte("reward/record/")
	instancePrefix  = []byte("reward/instance/")
	userAwardPrefix = []byte("reward/user-award/")
	userIndexPrefix = []byte("reward/user-index/")
	counterKey      = []byte("reward/id-counter")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type communityView interface {
	Authorize(caller [20]byte, id community.ID) error
	AppendRewardRef(id community.ID, ref [32]byte) error
}

type tokenService interface {
	CreateAsset(decimals uint8, mintAuthority, freezeAuthority [20]byte) (token.AssetID, error)
	Mint(asset token.AssetID, authority, dest [20]byte, amount uint64) error
}

type metadataService interface {
	CreateMetadata(asset token.AssetID, name, symbol, uri string, mutable bool, updateAuthority [20]byte) error
	CreateMasterEdition(asset token.AssetID, capped bool, maxSupply uint64) error
}

// Engine manages the reward catalog and the per-user issuance ledger.
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

// NewEngine creates a rewards engine with a no-op emitter. Callers wire the
// state backend and collaborating services via the setters.
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

func (e *Engine) ready() error {
	if e.st == nil {
		return errNilState
	}
	if e.communities == nil {
		return errNilCommunity
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

func rewardKey(id ID) []byte {
	key := make([]byte, len(rewardPrefix)+len(id))
	copy(key, rewardPrefix)
	copy(key[len(rewardPrefix):], id[:])
	return key
}

func instanceKey(id ID, tokenID uint64) []byte {
	key := make([]byte, len(instancePrefix)+len(id)+8)
	copy(key, instancePrefix)
	copy(key[len(instancePrefix):], id[:])
	binary.BigEndian.PutUint64(key[len(instancePrefix)+len(id):], tokenID)
	return key
}

func userAwardKey(user [20]byte, seq uint64) []byte {
	key := make([]byte, len(userAwardPrefix)+len(user)+8)
	copy(key, userAwardPrefix)
	copy(key[len(userAwardPrefix):], user[:])
	binary.BigEndian.PutUint64(key[len(userAwardPrefix)+len(user):], seq)
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
	copy(id[:], ethcrypto.Keccak256([]byte("reward/id"), buf[:]))
	return id, nil
}

func (e *Engine) register(r *Reward) error {
	if err := e.st.KVPut(rewardKey(r.ID), r); err != nil {
		return err
	}
	if err := e.communities.AppendRewardRef(r.Community, r.ID); err != nil {
		return err
	}
	e.emit(events.RewardCreated{
		ID:        r.ID,
		Community: r.Community,
		Name:      r.Name,
		Variant:   uint8(r.Variant),
	})
	return nil
}

// CreateFungible defines a reward backed by a fungible asset with a supply
// cap. Issuance draws down against the cap cumulatively.
func (e *Engine) CreateFungible(caller [20]byte, communityID community.ID, name, description string, supply uint64) (ID, error) {
	if err := e.ready(); err != nil {
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
	r := &Reward{
		ID:          id,
		Community:   communityID,
		Name:        name,
		Description: description,
		Variant:     VariantFungible,
		Asset:       asset,
		Supply:      supply,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.register(r); err != nil {
		return ID{}, err
	}
	return id, nil
}

// CreateNonFungible defines a reward issued as numbered single-print
// instances. The backing asset carries the metadata record shared by every
// instance.
func (e *Engine) CreateNonFungible(caller [20]byte, communityID community.ID, name, description, metadataURI string) (ID, error) {
	if err := e.ready(); err != nil {
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
	r := &Reward{
		ID:          id,
		Community:   communityID,
		Name:        name,
		Description: description,
		Variant:     VariantNonFungible,
		Asset:       asset,
		MetadataURI: metadataURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.register(r); err != nil {
		return ID{}, err
	}
	return id, nil
}

// Get retrieves a reward by its identifier.
func (e *Engine) Get(id ID) (*Reward, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(Reward)
	ok, err := e.st.KVGet(rewardKey(id), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// InitUserIndex creates the reward index for a user. Issuance to a user
// without an index is rejected, so the index must exist first.
func (e *Engine) InitUserIndex(user [20]byte) error {
	if e.st == nil {
		return errNilState
	}
	exists, err := e.st.KVGet(userIndexKey(user), new(UserRewardIndex))
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	return e.st.KVPut(userIndexKey(user), &UserRewardIndex{User: user, Rewards: [][32]byte{}})
}

func (e *Engine) loadUserIndex(user [20]byte) (*UserRewardIndex, error) {
	idx := new(UserRewardIndex)
	found, err := e.st.KVGet(userIndexKey(user), idx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIndexNotFound
	}
	return idx, nil
}

func (e *Engine) recordIssuance(r *Reward, user [20]byte, amount uint64) (*UserReward, error) {
	idx, err := e.loadUserIndex(user)
	if err != nil {
		return nil, err
	}
	if len(idx.Rewards) >= maxIndexEntries {
		return nil, ErrIndexFull
	}
	seq := uint64(len(idx.Rewards))
	award := &UserReward{
		User:      user,
		Reward:    r.ID,
		Community: r.Community,
		Amount:    amount,
		AwardedAt: e.now(),
	}
	if err := e.st.KVPut(userAwardKey(user, seq), award); err != nil {
		return nil, err
	}
	idx.Rewards = append(idx.Rewards, r.ID)
	if err := e.st.KVPut(userIndexKey(user), idx); err != nil {
		return nil, err
	}
	return award, nil
}

// IssueFungible mints amount units of the reward's asset to the user. The
// supplied asset must match the reward's backing asset, and the cumulative
// units issued across all users may never exceed the declared supply.
func (e *Engine) IssueFungible(caller [20]byte, id ID, asset token.AssetID, user [20]byte, amount uint64) (*UserReward, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	r, ok := e.Get(id)
	if !ok {
		return nil, ErrRewardNotFound
	}
	if r.Variant != VariantFungible || asset != r.Asset {
		return nil, ErrInvalidRewardType
	}
	if err := e.communities.Authorize(caller, r.Community); err != nil {
		return nil, err
	}
	if r.IssuedUnits+amount > r.Supply {
		return nil, fmt.Errorf("%w: %d of %d units remain", ErrInsufficientSupply, r.Supply-r.IssuedUnits, r.Supply)
	}
	if err := e.tokens.Mint(r.Asset, e.authority, user, amount); err != nil {
		return nil, err
	}
	award, err := e.recordIssuance(r, user, amount)
	if err != nil {
		return nil, err
	}
	r.IssuedUnits += amount
	r.IssuedCount++
	r.UpdatedAt = e.now()
	if err := e.st.KVPut(rewardKey(r.ID), r); err != nil {
		return nil, err
	}
	e.emit(events.RewardIssued{ID: r.ID, Community: r.Community, User: user, Amount: amount})
	return award, nil
}

// IssueNonFungible issues the next numbered instance of the reward to the
// user. The supplied asset must match the reward's backing asset; token ids
// are assigned sequentially starting at one.
func (e *Engine) IssueNonFungible(caller [20]byte, id ID, asset token.AssetID, user [20]byte) (*Instance, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	r, ok := e.Get(id)
	if !ok {
		return nil, ErrRewardNotFound
	}
	if r.Variant != VariantNonFungible || asset != r.Asset {
		return nil, ErrInvalidRewardType
	}
	if err := e.communities.Authorize(caller, r.Community); err != nil {
		return nil, err
	}
	if err := e.tokens.Mint(r.Asset, e.authority, user, 1); err != nil {
		return nil, err
	}
	tokenID := r.IssuedCount + 1
	inst := &Instance{
		Reward:   r.ID,
		Owner:    user,
		TokenID:  tokenID,
		IssuedAt: e.now(),
	}
	if err := e.st.KVPut(instanceKey(r.ID, tokenID), inst); err != nil {
		return nil, err
	}
	if _, err := e.recordIssuance(r, user, 1); err != nil {
		return nil, err
	}
	r.IssuedCount = tokenID
	r.UpdatedAt = e.now()
	if err := e.st.KVPut(rewardKey(r.ID), r); err != nil {
		return nil, err
	}
	e.emit(events.RewardIssued{ID: r.ID, Community: r.Community, User: user, Amount: 1, TokenID: tokenID})
	return inst, nil
}

// ListUserRewards returns the reward references issued to the user, oldest
// first. Duplicates appear once per issuance.
func (e *Engine) ListUserRewards(user [20]byte) ([][32]byte, error) {
	if e.st == nil {
		return nil, errNilState
	}
	idx, err := e.loadUserIndex(user)
	if err != nil {
		return nil, err
	}
	return append([][32]byte{}, idx.Rewards...), nil
}

// UserRewardAt returns the nth issuance record for the user.
func (e *Engine) UserRewardAt(user [20]byte, seq uint64) (*UserReward, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(UserReward)
	ok, err := e.st.KVGet(userAwardKey(user, seq), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// GetInstance returns an issued non-fungible instance by reward and token id.
func (e *Engine) GetInstance(id ID, tokenID uint64) (*Instance, bool) {
	if e.st == nil {
		return nil, false
	}
	out := new(Instance)
	ok, err := e.st.KVGet(instanceKey(id, tokenID), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}
