package achievement

import (
	"errors"
	"strings"
	"testing"

	"cepchain/core/events"
	"cepchain/core/state"
	"cepchain/native/community"
	"cepchain/native/metadata"
	"cepchain/native/token"
	"cepchain/storage"
)

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

type fixture struct {
	engine      *Engine
	communities *community.Registry
	tokens      *token.Ledger
	metadata    *metadata.Registry
	emitter     *capturingEmitter
	authority   [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())

	communities := community.NewRegistry(manager)
	communities.SetNowFunc(func() int64 { return 1_700_000_000 })
	if err := communities.InitializeRegistry(); err != nil {
		t.Fatalf("initialize community registry: %v", err)
	}

	tokens := token.NewLedger(manager)
	meta := metadata.NewRegistry(manager)
	emitter := &capturingEmitter{}
	authority := addr(0xEE)

	engine := NewEngine()
	engine.SetState(manager)
	engine.SetCommunities(communities)
	engine.SetTokenService(tokens)
	engine.SetMetadataService(meta)
	engine.SetAuthority(authority)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1_700_000_100 })

	return &fixture{
		engine:      engine,
		communities: communities,
		tokens:      tokens,
		metadata:    meta,
		emitter:     emitter,
		authority:   authority,
	}
}

func (f *fixture) createCommunity(t *testing.T, admin [20]byte) community.ID {
	t.Helper()
	id, err := f.communities.Create(admin, "Acme Arcade", "Retro gaming community", community.Metadata{})
	if err != nil {
		t.Fatalf("create community: %v", err)
	}
	return id
}

func TestCreatePlainAndAwardFlow(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	user := addr(0x02)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreatePlain(admin, communityID, "First Login", "Logged in once", "login >= 1", 10)
	if err != nil {
		t.Fatalf("create plain achievement: %v", err)
	}

	a, ok := f.engine.Get(id)
	if !ok {
		t.Fatalf("achievement not found after create")
	}
	if a.Variant != VariantPlain || a.Points != 10 || a.Community != communityID {
		t.Fatalf("unexpected achievement %+v", a)
	}

	refs, err := f.communities.ListAchievements(communityID)
	if err != nil {
		t.Fatalf("list community achievements: %v", err)
	}
	if len(refs) != 1 || refs[0] != [32]byte(id) {
		t.Fatalf("achievement not registered under community: %v", refs)
	}

	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	award, err := f.engine.Award(admin, id, user)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if award.User != user || award.Achievement != id || award.Community != communityID {
		t.Fatalf("unexpected award record %+v", award)
	}
	if award.AwardedAt != 1_700_000_100 {
		t.Fatalf("unexpected award timestamp %d", award.AwardedAt)
	}

	got, err := f.engine.ListUserAchievements(user)
	if err != nil {
		t.Fatalf("list user achievements: %v", err)
	}
	if len(got) != 1 || got[0] != [32]byte(id) {
		t.Fatalf("unexpected user achievement list %v", got)
	}
}

func TestAwardRequiresUserIndex(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreatePlain(admin, communityID, "First Login", "", "", 1)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	if _, err := f.engine.Award(admin, id, addr(0x02)); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestInitUserIndexOnce(t *testing.T) {
	f := newFixture(t)
	user := addr(0x02)

	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	if err := f.engine.InitUserIndex(user); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestAwardRequiresCommunityAdmin(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	user := addr(0x02)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreatePlain(admin, communityID, "First Login", "", "", 1)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	if _, err := f.engine.Award(addr(0x0F), id, user); !errors.Is(err, community.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDuplicateAwardsAllowed(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	user := addr(0x02)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreatePlain(admin, communityID, "Daily Visit", "", "", 1)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.engine.Award(admin, id, user); err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
	}

	got, err := f.engine.ListUserAchievements(user)
	if err != nil {
		t.Fatalf("list user achievements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for seq := uint64(0); seq < 3; seq++ {
		if _, ok := f.engine.UserAwardAt(user, seq); !ok {
			t.Fatalf("award record %d missing", seq)
		}
	}
}

func TestFungibleAwardMintsOneUnit(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	user := addr(0x02)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreateFungible(admin, communityID, "Collector", "", "", 5, 1000)
	if err != nil {
		t.Fatalf("create fungible achievement: %v", err)
	}
	a, _ := f.engine.Get(id)
	if a.Variant != VariantFungible || a.Supply != 1000 {
		t.Fatalf("unexpected achievement %+v", a)
	}

	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	if _, err := f.engine.Award(admin, id, user); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := f.engine.Award(admin, id, user); err != nil {
		t.Fatalf("second award: %v", err)
	}

	if got := f.tokens.BalanceOf(a.Asset, user); got != 2 {
		t.Fatalf("expected user balance 2, got %d", got)
	}
}

func TestNonFungibleAwardMintsSequentialEditions(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreateNonFungible(admin, communityID, "Champion", "Tournament winner", "", 50, "ipfs://champion")
	if err != nil {
		t.Fatalf("create non-fungible achievement: %v", err)
	}
	a, _ := f.engine.Get(id)
	record, ok := f.metadata.Metadata(a.Asset)
	if !ok || record.URI != "ipfs://champion" {
		t.Fatalf("master metadata missing or wrong: %+v", record)
	}

	users := [][20]byte{addr(0x02), addr(0x03), addr(0x04)}
	for i, user := range users {
		if err := f.engine.InitUserIndex(user); err != nil {
			t.Fatalf("init index for user %d: %v", i, err)
		}
		if _, err := f.engine.Award(admin, id, user); err != nil {
			t.Fatalf("award to user %d: %v", i, err)
		}
	}

	a, _ = f.engine.Get(id)
	if a.EditionCount != 3 {
		t.Fatalf("expected edition count 3, got %d", a.EditionCount)
	}
	for number := uint64(1); number <= 3; number++ {
		editionAsset, ok := f.metadata.EditionAsset(a.Asset, number)
		if !ok {
			t.Fatalf("edition %d not recorded", number)
		}
		owner := users[number-1]
		if got := f.tokens.BalanceOf(editionAsset, owner); got != 1 {
			t.Fatalf("edition %d: expected owner balance 1, got %d", number, got)
		}
		if got := f.tokens.BalanceOf(editionAsset, f.authority); got != 0 {
			t.Fatalf("edition %d: authority retained balance %d", number, got)
		}
	}

	// Award events carry the assigned edition numbers in order.
	var editions []uint64
	for _, evt := range f.emitter.events {
		if awarded, ok := evt.(events.AchievementAwarded); ok {
			editions = append(editions, awarded.Edition)
		}
	}
	if len(editions) != 3 || editions[0] != 1 || editions[1] != 2 || editions[2] != 3 {
		t.Fatalf("unexpected edition sequence %v", editions)
	}
}

func TestCreateValidatesFieldLengths(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	communityID := f.createCommunity(t, admin)

	if _, err := f.engine.CreatePlain(admin, communityID, strings.Repeat("n", 51), "", "", 1); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong for name, got %v", err)
	}
	if _, err := f.engine.CreatePlain(admin, communityID, "ok", strings.Repeat("d", 201), "", 1); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong for description, got %v", err)
	}
}

func TestAwardUnknownAchievement(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Award(addr(0x01), ID{0xFF}, addr(0x02)); !errors.Is(err, ErrAchievementNotFound) {
		t.Fatalf("expected ErrAchievementNotFound, got %v", err)
	}
}

func TestAwardIndexCap(t *testing.T) {
	f := newFixture(t)
	admin := addr(0x01)
	user := addr(0x02)
	communityID := f.createCommunity(t, admin)

	id, err := f.engine.CreatePlain(admin, communityID, "Daily Visit", "", "", 1)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}
	if err := f.engine.InitUserIndex(user); err != nil {
		t.Fatalf("init user index: %v", err)
	}
	for i := 0; i < maxIndexEntries; i++ {
		if _, err := f.engine.Award(admin, id, user); err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
	}
	if _, err := f.engine.Award(admin, id, user); !errors.Is(err, ErrIndexFull) {
		t.Fatalf("expected ErrIndexFull, got %v", err)
	}
}
