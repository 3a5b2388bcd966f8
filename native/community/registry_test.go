package community

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"cepchain/core/events"
	"cepchain/core/state"
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

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry(state.NewManager(storage.NewMemDB()))
	registry.SetNowFunc(func() int64 { return 1_700_000_000 })
	if err := registry.InitializeRegistry(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	return registry
}

func TestCreateAndGet(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)

	meta := Metadata{
		Website:     "https://acme.example",
		SocialMedia: "@acmearcade",
		Category:    "gaming",
		Tags:        []string{"arcade", "retro"},
	}
	id, err := registry.Create(creator, "Acme Arcade", "Retro gaming community", meta)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c, ok := registry.Get(id)
	if !ok {
		t.Fatalf("community not found after create")
	}
	if c.Name != "Acme Arcade" {
		t.Fatalf("unexpected name %q", c.Name)
	}
	if len(c.Admins) != 1 || c.Admins[0] != creator {
		t.Fatalf("creator must be the sole admin, got %v", c.Admins)
	}
	if c.CreatedAt != 1_700_000_000 || c.UpdatedAt != 1_700_000_000 {
		t.Fatalf("unexpected timestamps: %d/%d", c.CreatedAt, c.UpdatedAt)
	}
	if len(c.Achievements) != 0 || len(c.Memberships) != 0 || len(c.Rewards) != 0 {
		t.Fatalf("catalog references must start empty")
	}
	if !reflect.DeepEqual(c.Metadata, meta) {
		t.Fatalf("metadata did not round-trip: got %+v want %+v", c.Metadata, meta)
	}

	ids, err := registry.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("unexpected registry listing %v", ids)
	}
}

func TestCreateRequiresInitializedRegistry(t *testing.T) {
	registry := NewRegistry(state.NewManager(storage.NewMemDB()))

	_, err := registry.Create(addr(0x01), "Acme", "desc", Metadata{})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestFieldLengthBoundaries(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)

	name50 := strings.Repeat("n", 50)
	if _, err := registry.Create(creator, name50, "desc", Metadata{}); err != nil {
		t.Fatalf("50-character name must be accepted: %v", err)
	}

	name51 := strings.Repeat("n", 51)
	if _, err := registry.Create(creator, name51, "desc", Metadata{}); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong for 51-character name, got %v", err)
	}

	desc201 := strings.Repeat("d", 201)
	if _, err := registry.Create(creator, "Acme", desc201, Metadata{}); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong for 201-character description, got %v", err)
	}
}

func TestFieldLengthCountsRunes(t *testing.T) {
	registry := newTestRegistry(t)

	// 50 multi-byte characters exceed 50 bytes but not 50 characters.
	name := strings.Repeat("ü", 50)
	if _, err := registry.Create(addr(0x01), name, "desc", Metadata{}); err != nil {
		t.Fatalf("50 multi-byte characters must be accepted: %v", err)
	}
}

func TestCreateRejectsTooManyTags(t *testing.T) {
	registry := newTestRegistry(t)

	meta := Metadata{Tags: []string{"a", "b", "c", "d", "e", "f"}}
	if _, err := registry.Create(addr(0x01), "Acme", "desc", meta); !errors.Is(err, ErrTooManyTags) {
		t.Fatalf("expected ErrTooManyTags, got %v", err)
	}

	meta.Tags = meta.Tags[:5]
	if _, err := registry.Create(addr(0x01), "Acme", "desc", meta); err != nil {
		t.Fatalf("five tags must be accepted: %v", err)
	}
}

func TestUpdateValidatesBeforeWriting(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := registry.Update(creator, id, strings.Repeat("n", 51), "new desc"); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}
	c, _ := registry.Get(id)
	if c.Name != "Acme" || c.Description != "desc" {
		t.Fatalf("rejected update must leave the record untouched: %q/%q", c.Name, c.Description)
	}

	if err := registry.Update(creator, id, "Acme Reborn", "new desc"); err != nil {
		t.Fatalf("update: %v", err)
	}
	c, _ = registry.Get(id)
	if c.Name != "Acme Reborn" || c.Description != "new desc" {
		t.Fatalf("update not applied: %q/%q", c.Name, c.Description)
	}
}

func TestUpdateRequiresAdmin(t *testing.T) {
	registry := newTestRegistry(t)
	id, err := registry.Create(addr(0x01), "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := registry.Update(addr(0x02), id, "Hijacked", "desc"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAddAdminRejectsDuplicate(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second := addr(0x02)
	if err := registry.AddAdmin(creator, id, second); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := registry.AddAdmin(creator, id, second); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}
	if err := registry.AddAdmin(creator, id, creator); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists for creator, got %v", err)
	}

	c, _ := registry.Get(id)
	if len(c.Admins) != 2 {
		t.Fatalf("expected 2 admins, got %d", len(c.Admins))
	}
}

func TestRemoveAdminProtectsLastAdmin(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := registry.RemoveAdmin(creator, id, creator); !errors.Is(err, ErrLastAdminProtected) {
		t.Fatalf("expected ErrLastAdminProtected, got %v", err)
	}

	second := addr(0x02)
	if err := registry.AddAdmin(creator, id, second); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := registry.RemoveAdmin(creator, id, creator); err != nil {
		t.Fatalf("remove admin: %v", err)
	}

	c, _ := registry.Get(id)
	if len(c.Admins) != 1 || c.Admins[0] != second {
		t.Fatalf("unexpected admin set %v", c.Admins)
	}

	// The survivor is now the last admin and cannot be removed.
	if err := registry.RemoveAdmin(second, id, second); !errors.Is(err, ErrLastAdminProtected) {
		t.Fatalf("expected ErrLastAdminProtected, got %v", err)
	}
}

func TestRemoveAdminUnknownAdmin(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := registry.RemoveAdmin(creator, id, addr(0x09)); !errors.Is(err, ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}

func TestGlobalStateLifecycle(t *testing.T) {
	registry := newTestRegistry(t)
	admin := addr(0xAA)

	if _, ok := registry.GlobalState(); ok {
		t.Fatalf("global state must not exist before initialization")
	}
	if err := registry.InitializeState(admin); err != nil {
		t.Fatalf("initialize state: %v", err)
	}
	if err := registry.InitializeState(admin); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	global, ok := registry.GlobalState()
	if !ok || global.Admin != admin || global.Version != 1 {
		t.Fatalf("unexpected global state %+v", global)
	}

	next := addr(0xAB)
	if err := registry.UpdateGlobalAdmin(addr(0x01), next); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.UpdateGlobalAdmin(admin, next); err != nil {
		t.Fatalf("rotate admin: %v", err)
	}
	global, _ = registry.GlobalState()
	if global.Admin != next || global.Version != 2 {
		t.Fatalf("rotation not applied: %+v", global)
	}
}

func TestAuthorizePolicies(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	globalAdmin := addr(0xAA)
	outsider := addr(0x0F)
	if err := registry.InitializeState(globalAdmin); err != nil {
		t.Fatalf("initialize state: %v", err)
	}
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name    string
		policy  Policy
		caller  [20]byte
		wantErr error
	}{
		{"community policy accepts community admin", PolicyCommunityAdmin, creator, nil},
		{"community policy rejects global admin", PolicyCommunityAdmin, globalAdmin, ErrUnauthorized},
		{"global policy accepts global admin", PolicyGlobalAdmin, globalAdmin, nil},
		{"global policy rejects community admin", PolicyGlobalAdmin, creator, ErrUnauthorized},
		{"either policy accepts community admin", PolicyEither, creator, nil},
		{"either policy accepts global admin", PolicyEither, globalAdmin, nil},
		{"either policy rejects outsider", PolicyEither, outsider, ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			registry.SetPolicy(tc.policy)
			err := registry.Authorize(tc.caller, id)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateUnderGlobalAdminPolicy(t *testing.T) {
	registry := newTestRegistry(t)
	registry.SetPolicy(PolicyGlobalAdmin)
	globalAdmin := addr(0xAA)
	if err := registry.InitializeState(globalAdmin); err != nil {
		t.Fatalf("initialize state: %v", err)
	}

	if _, err := registry.Create(addr(0x01), "Acme", "desc", Metadata{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-global caller, got %v", err)
	}
	id, err := registry.Create(globalAdmin, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("global admin create: %v", err)
	}
	c, _ := registry.Get(id)
	if len(c.Admins) != 1 || c.Admins[0] != globalAdmin {
		t.Fatalf("unexpected admin set %v", c.Admins)
	}
}

func TestParsePolicy(t *testing.T) {
	for input, want := range map[string]Policy{
		"":          PolicyCommunityAdmin,
		"community": PolicyCommunityAdmin,
		"Global":    PolicyGlobalAdmin,
		" either ":  PolicyEither,
	} {
		got, err := ParsePolicy(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", input, got, want)
		}
	}
	if _, err := ParsePolicy("anarchy"); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestAppendRefsAndCap(t *testing.T) {
	registry := newTestRegistry(t)
	creator := addr(0x01)
	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var ref [32]byte
	for i := 0; i < maxIndexEntries; i++ {
		ref[0] = byte(i)
		ref[1] = byte(i >> 8)
		if err := registry.AppendAchievementRef(id, ref); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := registry.AppendAchievementRef(id, ref); !errors.Is(err, ErrIndexFull) {
		t.Fatalf("expected ErrIndexFull, got %v", err)
	}

	refs, err := registry.ListAchievements(id)
	if err != nil {
		t.Fatalf("list achievements: %v", err)
	}
	if len(refs) != maxIndexEntries {
		t.Fatalf("expected %d refs, got %d", maxIndexEntries, len(refs))
	}
}

func TestEventsEmitted(t *testing.T) {
	registry := newTestRegistry(t)
	emitter := &capturingEmitter{}
	registry.SetEmitter(emitter)
	creator := addr(0x01)

	id, err := registry.Create(creator, "Acme", "desc", Metadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.AddAdmin(creator, id, addr(0x02)); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := registry.RemoveAdmin(creator, id, addr(0x02)); err != nil {
		t.Fatalf("remove admin: %v", err)
	}

	want := []string{
		events.TypeCommunityCreated,
		events.TypeCommunityAdminAdded,
		events.TypeCommunityAdminRemoved,
	}
	if len(emitter.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(emitter.events))
	}
	for i, evt := range emitter.events {
		if evt.EventType() != want[i] {
			t.Fatalf("event %d: got %s want %s", i, evt.EventType(), want[i])
		}
	}
}

type pausedView struct{}

func (pausedView) IsPaused(module string) bool { return module == moduleName }

func TestPausedModuleRejectsMutations(t *testing.T) {
	registry := newTestRegistry(t)
	registry.SetPauses(pausedView{})

	if _, err := registry.Create(addr(0x01), "Acme", "desc", Metadata{}); err == nil {
		t.Fatalf("expected pause guard to reject create")
	}
}
