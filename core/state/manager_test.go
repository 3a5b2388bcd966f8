package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cepchain/storage"
)

type record struct {
	Name  string
	Count uint64
}

func TestKVRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	stored := &record{Name: "acme", Count: 7}
	require.NoError(t, manager.KVPut([]byte("test/record"), stored))

	loaded := new(record)
	ok, err := manager.KVGet([]byte("test/record"), loaded)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stored, loaded)
}

func TestKVGetMissing(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	ok, err := manager.KVGet([]byte("test/absent"), new(record))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVGetNilDestinationProbesExistence(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	key := []byte("test/probe")

	ok, err := manager.KVGet(key, nil)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.KVPut(key, uint64(1)))
	ok, err = manager.KVGet(key, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKVAppendPreservesDuplicates(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	key := []byte("test/history")

	require.NoError(t, manager.KVAppend(key, []byte("ref-1")))
	require.NoError(t, manager.KVAppend(key, []byte("ref-2")))
	require.NoError(t, manager.KVAppend(key, []byte("ref-1")))

	var list [][]byte
	require.NoError(t, manager.KVGetList(key, &list))
	require.Equal(t, [][]byte{[]byte("ref-1"), []byte("ref-2"), []byte("ref-1")}, list)

	n, err := manager.KVLen(key)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestKVGetListMissingInitialisesEmpty(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	var list [][]byte
	require.NoError(t, manager.KVGetList([]byte("test/empty"), &list))
	require.NotNil(t, list)
	require.Len(t, list, 0)
}

func TestKVEmptyKeyRejected(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	_, err := manager.KVGet(nil, new(record))
	require.Error(t, err)
	require.Error(t, manager.KVPut(nil, uint64(1)))
	require.Error(t, manager.KVAppend(nil, []byte("x")))
}
