package core

import (
	"sync"

	"cepchain/core/events"
	"cepchain/core/state"
	"cepchain/native/achievement"
	nativecommon "cepchain/native/common"
	"cepchain/native/community"
	"cepchain/native/membership"
	"cepchain/native/metadata"
	"cepchain/native/rewards"
	"cepchain/native/token"
	"cepchain/storage"
)

// Services bundles the engagement engines wired against one state view. The
// engines share a single state manager, so references written by one engine
// are immediately visible to the others within the same scope.
type Services struct {
	Communities  *community.Registry
	Achievements *achievement.Engine
	Memberships  *membership.Engine
	Rewards      *rewards.Engine
	Tokens       *token.Ledger
	Metadata     *metadata.Registry
}

// Node owns the engagement ledger's storage and hands out operation-scoped
// service bundles. Mutations run inside a write transition: either every write
// of an operation reaches the store or none do.
type Node struct {
	mu        sync.Mutex
	db        storage.Database
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	policy    community.Policy
	authority [20]byte
}

// NewNode creates a node over the provided database.
func NewNode(db storage.Database) *Node {
	return &Node{
		db:      db,
		emitter: events.NoopEmitter{},
		policy:  community.PolicyCommunityAdmin,
	}
}

// SetEmitter configures the event emitter shared by all engines.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.emitter = emitter
}

// SetPauses configures the pause view shared by all engines.
func (n *Node) SetPauses(p nativecommon.PauseView) { n.pauses = p }

// SetPolicy selects the authority policy applied to gated operations.
func (n *Node) SetPolicy(p community.Policy) { n.policy = p }

// SetAuthority configures the mint and update authority used for assets
// created by the engines.
func (n *Node) SetAuthority(addr [20]byte) { n.authority = addr }

// bufferedEmitter holds events until the surrounding transition commits, so
// a discarded operation announces nothing.
type bufferedEmitter struct {
	pending []events.Event
}

func (b *bufferedEmitter) Emit(evt events.Event) {
	b.pending = append(b.pending, evt)
}

func (b *bufferedEmitter) flush(sink events.Emitter) {
	for _, evt := range b.pending {
		sink.Emit(evt)
	}
}

func (n *Node) wire(db storage.Database, emitter events.Emitter) *Services {
	manager := state.NewManager(db)

	communities := community.NewRegistry(manager)
	communities.SetEmitter(emitter)
	communities.SetPauses(n.pauses)
	communities.SetPolicy(n.policy)

	tokens := token.NewLedger(manager)
	meta := metadata.NewRegistry(manager)

	achievements := achievement.NewEngine()
	achievements.SetState(manager)
	achievements.SetCommunities(communities)
	achievements.SetTokenService(tokens)
	achievements.SetMetadataService(meta)
	achievements.SetAuthority(n.authority)
	achievements.SetPauses(n.pauses)
	achievements.SetEmitter(emitter)

	memberships := membership.NewEngine()
	memberships.SetState(manager)
	memberships.SetCommunities(communities)
	memberships.SetTokenService(tokens)
	memberships.SetMetadataService(meta)
	memberships.SetAuthority(n.authority)
	memberships.SetPauses(n.pauses)
	memberships.SetEmitter(emitter)

	rewardsEngine := rewards.NewEngine()
	rewardsEngine.SetState(manager)
	rewardsEngine.SetCommunities(communities)
	rewardsEngine.SetTokenService(tokens)
	rewardsEngine.SetMetadataService(meta)
	rewardsEngine.SetAuthority(n.authority)
	rewardsEngine.SetPauses(n.pauses)
	rewardsEngine.SetEmitter(emitter)

	return &Services{
		Communities:  communities,
		Achievements: achievements,
		Memberships:  memberships,
		Rewards:      rewardsEngine,
		Tokens:       tokens,
		Metadata:     meta,
	}
}

// Execute runs a mutating operation against a write transition. The buffered
// writes are committed only when fn returns nil; any error discards them and
// leaves the store untouched. Engine events are buffered alongside the writes
// and reach the node's emitter only after a successful commit. Operations are
// serialised so a committed transition never clobbers a concurrent writer.
func (n *Node) Execute(fn func(*Services) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	tx := state.NewTransition(n.db)
	buf := &bufferedEmitter{}
	if err := fn(n.wire(tx, buf)); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	buf.flush(n.emitter)
	return nil
}

// View runs a read-only function directly against the store.
func (n *Node) View(fn func(*Services) error) error {
	return fn(n.wire(n.db, n.emitter))
}
