package community

import (
	"encoding/binary"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"cepchain/core/events"
	nativecommon "cepchain/native/common"
)

const (
	moduleName = "community"

	maxNameLen        = 50
	maxDescriptionLen = 200
	maxTags           = 5
	maxIndexEntries   = 200
)

var (
	registryKey     = []byte("community/registry")
	communityPrefix = []byte("community/record/")
	counterKey      = []byte("community/id-counter")
	globalKey       = []byte("community/global-state")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Registry manages persistence and retrieval of communities, their admin sets
// and the protocol-wide administrator. Every other engagement engine routes
// its community-level authorization checks through it.
type Registry struct {
	st      registryState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	policy  Policy
	nowFn   func() int64
}

// NewRegistry creates a registry backed by the provided state manager. The
// authority policy defaults to community-admin gating.
func NewRegistry(st registryState) *Registry {
	return &Registry{
		st:      st,
		emitter: events.NoopEmitter{},
		policy:  PolicyCommunityAdmin,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses configures the pause view guarding mutating operations.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetPolicy selects the authority policy applied to gated operations.
func (r *Registry) SetPolicy(p Policy) {
	r.policy = p
}

// Policy returns the configured authority policy.
func (r *Registry) Policy() Policy {
	return r.policy
}

// SetNowFunc overrides the time source used for created/updated stamps.
// Primarily intended for tests to provide deterministic timestamps.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() uint64 {
	return uint64(r.nowFn())
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

func communityKey(id ID) []byte {
	key := make([]byte, len(communityPrefix)+len(id))
	copy(key, communityPrefix)
	copy(key[len(communityPrefix):], id[:])
	return key
}

// InitializeState records the protocol administrator. It may run exactly once.
func (r *Registry) InitializeState(admin [20]byte) error {
	if admin == ([20]byte{}) {
		return ErrInvalidAdmin
	}
	exists, err := r.st.KVGet(globalKey, new(GlobalState))
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	return r.st.KVPut(globalKey, &GlobalState{Admin: admin, Version: 1})
}

// GlobalState retrieves the protocol administrator record.
func (r *Registry) GlobalState() (*GlobalState, bool) {
	out := new(GlobalState)
	ok, err := r.st.KVGet(globalKey, out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// UpdateGlobalAdmin rotates the protocol administrator. Only the current
// administrator may rotate it.
func (r *Registry) UpdateGlobalAdmin(caller, newAdmin [20]byte) error {
	if newAdmin == ([20]byte{}) {
		return ErrInvalidAdmin
	}
	global, ok := r.GlobalState()
	if !ok {
		return ErrNotInitialized
	}
	if global.Admin != caller {
		return ErrUnauthorized
	}
	old := global.Admin
	global.Admin = newAdmin
	global.Version++
	if err := r.st.KVPut(globalKey, global); err != nil {
		return err
	}
	r.emit(events.GlobalAdminRotated{OldAdmin: old, NewAdmin: newAdmin, Version: global.Version})
	return nil
}

// InitializeRegistry creates the singleton community list. The operation is
// idempotent so genesis tooling can run it unconditionally.
func (r *Registry) InitializeRegistry() error {
	exists, err := r.st.KVGet(registryKey, nil)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.st.KVPut(registryKey, [][]byte{})
}

func (r *Registry) registryInitialized() (bool, error) {
	return r.st.KVGet(registryKey, nil)
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

func (r *Registry) nextID() (ID, error) {
	var counter uint64
	if _, err := r.st.KVGet(counterKey, &counter); err != nil {
		return ID{}, err
	}
	counter++
	if err := r.st.KVPut(counterKey, counter); err != nil {
		return ID{}, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	var id ID
	copy(id[:], ethcrypto.Keccak256([]byte("community/id"), buf[:]))
	return id, nil
}

// Create registers a new community with the caller as its sole admin. Under
// the global-admin policy only the protocol administrator may create
// communities; the other policies accept any caller.
func (r *Registry) Create(caller [20]byte, name, description string, meta Metadata) (ID, error) {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return ID{}, err
	}
	if err := validateFields(name, description); err != nil {
		return ID{}, err
	}
	if len(meta.Tags) > maxTags {
		return ID{}, fmt.Errorf("%w: %d tags, maximum %d", ErrTooManyTags, len(meta.Tags), maxTags)
	}
	if r.policy == PolicyGlobalAdmin {
		global, ok := r.GlobalState()
		if !ok {
			return ID{}, ErrNotInitialized
		}
		if global.Admin != caller {
			return ID{}, ErrUnauthorized
		}
	}
	initialized, err := r.registryInitialized()
	if err != nil {
		return ID{}, err
	}
	if !initialized {
		return ID{}, fmt.Errorf("%w: community registry", ErrNotInitialized)
	}
	var registered [][]byte
	if err := r.st.KVGetList(registryKey, &registered); err != nil {
		return ID{}, err
	}
	if len(registered) >= maxIndexEntries {
		return ID{}, fmt.Errorf("%w: community registry", ErrIndexFull)
	}
	id, err := r.nextID()
	if err != nil {
		return ID{}, err
	}
	now := r.now()
	c := &Community{
		ID:           id,
		Name:         name,
		Description:  description,
		Admins:       [][20]byte{caller},
		Achievements: [][32]byte{},
		Memberships:  [][32]byte{},
		Rewards:      [][32]byte{},
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.st.KVPut(communityKey(id), c); err != nil {
		return ID{}, err
	}
	if err := r.st.KVAppend(registryKey, id[:]); err != nil {
		return ID{}, err
	}
	r.emit(events.CommunityCreated{ID: id, Creator: caller, Name: name})
	return id, nil
}

// Get retrieves a community by its identifier.
func (r *Registry) Get(id ID) (*Community, bool) {
	out := new(Community)
	ok, err := r.st.KVGet(communityKey(id), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// List returns every registered community identifier in creation order.
func (r *Registry) List() ([]ID, error) {
	var raw [][]byte
	if err := r.st.KVGetList(registryKey, &raw); err != nil {
		return nil, err
	}
	ids := make([]ID, 0, len(raw))
	for _, entry := range raw {
		var id ID
		copy(id[:], entry)
		ids = append(ids, id)
	}
	return ids, nil
}

// Authorize evaluates the configured policy for a caller acting on the given
// community. State is loaded fresh on every call.
func (r *Registry) Authorize(caller [20]byte, id ID) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrCommunityNotFound
	}
	global, _ := r.GlobalState()
	return authorize(r.policy, caller, c, global)
}

// Update changes a community's name and description. The caller must be
// authorized by the configured policy.
func (r *Registry) Update(caller [20]byte, id ID, name, description string) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if err := validateFields(name, description); err != nil {
		return err
	}
	c, ok := r.Get(id)
	if !ok {
		return ErrCommunityNotFound
	}
	global, _ := r.GlobalState()
	if err := authorize(r.policy, caller, c, global); err != nil {
		return err
	}
	c.Name = name
	c.Description = description
	c.UpdatedAt = r.now()
	if err := r.st.KVPut(communityKey(id), c); err != nil {
		return err
	}
	r.emit(events.CommunityUpdated{ID: id, Name: name})
	return nil
}

// AddAdmin extends a community's admin set.
func (r *Registry) AddAdmin(caller [20]byte, id ID, newAdmin [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if newAdmin == ([20]byte{}) {
		return ErrInvalidAdmin
	}
	c, ok := r.Get(id)
	if !ok {
		return ErrCommunityNotFound
	}
	global, _ := r.GlobalState()
	if err := authorize(r.policy, caller, c, global); err != nil {
		return err
	}
	if c.HasAdmin(newAdmin) {
		return ErrAdminExists
	}
	c.Admins = append(c.Admins, newAdmin)
	c.UpdatedAt = r.now()
	if err := r.st.KVPut(communityKey(id), c); err != nil {
		return err
	}
	r.emit(events.CommunityAdminAdded{ID: id, Caller: caller, Admin: newAdmin})
	return nil
}

// RemoveAdmin shrinks a community's admin set. Removing the last admin is
// rejected so the set never empties.
func (r *Registry) RemoveAdmin(caller [20]byte, id ID, admin [20]byte) error {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	c, ok := r.Get(id)
	if !ok {
		return ErrCommunityNotFound
	}
	global, _ := r.GlobalState()
	if err := authorize(r.policy, caller, c, global); err != nil {
		return err
	}
	if !c.HasAdmin(admin) {
		return ErrAdminNotFound
	}
	if len(c.Admins) == 1 {
		return ErrLastAdminProtected
	}
	updated := make([][20]byte, 0, len(c.Admins)-1)
	for _, existing := range c.Admins {
		if existing != admin {
			updated = append(updated, existing)
		}
	}
	c.Admins = updated
	c.UpdatedAt = r.now()
	if err := r.st.KVPut(communityKey(id), c); err != nil {
		return err
	}
	r.emit(events.CommunityAdminRemoved{ID: id, Caller: caller, Admin: admin})
	return nil
}

// ListAchievements returns the achievement references registered under the
// community.
func (r *Registry) ListAchievements(id ID) ([][32]byte, error) {
	c, ok := r.Get(id)
	if !ok {
		return nil, ErrCommunityNotFound
	}
	return append([][32]byte{}, c.Achievements...), nil
}

func (r *Registry) appendRef(id ID, ref [32]byte, pick func(*Community) *[][32]byte, label string) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrCommunityNotFound
	}
	list := pick(c)
	if len(*list) >= maxIndexEntries {
		return fmt.Errorf("%w: %s list", ErrIndexFull, label)
	}
	*list = append(*list, ref)
	return r.st.KVPut(communityKey(id), c)
}

// AppendAchievementRef registers an achievement under the community. Called by
// the achievement engine as part of achievement creation.
func (r *Registry) AppendAchievementRef(id ID, ref [32]byte) error {
	return r.appendRef(id, ref, func(c *Community) *[][32]byte { return &c.Achievements }, "achievement")
}

// AppendMembershipRef registers a membership catalog under the community.
func (r *Registry) AppendMembershipRef(id ID, ref [32]byte) error {
	return r.appendRef(id, ref, func(c *Community) *[][32]byte { return &c.Memberships }, "membership")
}

// AppendRewardRef registers a reward under the community.
func (r *Registry) AppendRewardRef(id ID, ref [32]byte) error {
	return r.appendRef(id, ref, func(c *Community) *[][32]byte { return &c.Rewards }, "reward")
}
