package metadata

import (
	"encoding/binary"

	"cepchain/native/token"
)

var (
	recordPrefix  = []byte("metadata/record/")
	masterPrefix  = []byte("metadata/master/")
	editionPrefix = []byte("metadata/edition/")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Registry is the metadata-registry service: descriptive records plus master
// edition counters for non-fungible assets. The engagement engines call it as
// an indivisible sub-step of their own operations.
type Registry struct {
	st registryState
}

// NewRegistry creates a metadata registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st}
}

func recordKey(asset token.AssetID) []byte {
	key := make([]byte, len(recordPrefix)+len(asset))
	copy(key, recordPrefix)
	copy(key[len(recordPrefix):], asset[:])
	return key
}

func masterKey(asset token.AssetID) []byte {
	key := make([]byte, len(masterPrefix)+len(asset))
	copy(key, masterPrefix)
	copy(key[len(masterPrefix):], asset[:])
	return key
}

func editionKey(master token.AssetID, number uint64) []byte {
	key := make([]byte, len(editionPrefix)+len(master)+8)
	copy(key, editionPrefix)
	copy(key[len(editionPrefix):], master[:])
	binary.BigEndian.PutUint64(key[len(editionPrefix)+len(master):], number)
	return key
}

// CreateMetadata stores the descriptive record for an asset. An asset has at
// most one record.
func (r *Registry) CreateMetadata(asset token.AssetID, name, symbol, uri string, mutable bool, updateAuthority [20]byte) error {
	exists, err := r.st.KVGet(recordKey(asset), new(Record))
	if err != nil {
		return err
	}
	if exists {
		return ErrMetadataExists
	}
	return r.st.KVPut(recordKey(asset), &Record{
		Asset:           asset,
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
		Mutable:         mutable,
		UpdateAuthority: updateAuthority,
	})
}

// Metadata retrieves the descriptive record stored for an asset.
func (r *Registry) Metadata(asset token.AssetID) (*Record, bool) {
	out := new(Record)
	ok, err := r.st.KVGet(recordKey(asset), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// CreateMasterEdition initialises the edition counter for an asset. The asset
// must already carry a metadata record. maxSupply zero with capped false
// leaves issuance unbounded.
func (r *Registry) CreateMasterEdition(asset token.AssetID, capped bool, maxSupply uint64) error {
	if _, ok := r.Metadata(asset); !ok {
		return ErrMetadataNotFound
	}
	exists, err := r.st.KVGet(masterKey(asset), new(MasterEdition))
	if err != nil {
		return err
	}
	if exists {
		return ErrMasterExists
	}
	return r.st.KVPut(masterKey(asset), &MasterEdition{
		Asset:  asset,
		Capped: capped,
		Max:    maxSupply,
	})
}

// MasterEdition retrieves the master edition record for an asset.
func (r *Registry) MasterEdition(asset token.AssetID) (*MasterEdition, bool) {
	out := new(MasterEdition)
	ok, err := r.st.KVGet(masterKey(asset), out)
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

// MintNewEdition records a numbered print of the master. Edition numbers are
// strictly sequential: number must equal the master's minted count plus one.
func (r *Registry) MintNewEdition(master token.AssetID, newAsset token.AssetID, number uint64) error {
	me := new(MasterEdition)
	found, err := r.st.KVGet(masterKey(master), me)
	if err != nil {
		return err
	}
	if !found {
		return ErrMasterNotFound
	}
	if number != me.Minted+1 {
		return ErrEditionOutOfOrder
	}
	if me.Capped && number > me.Max {
		return ErrEditionCapReached
	}
	if err := r.st.KVPut(editionKey(master, number), &Edition{
		Master: master,
		Asset:  newAsset,
		Number: number,
	}); err != nil {
		return err
	}
	me.Minted = number
	return r.st.KVPut(masterKey(master), me)
}

// EditionAsset resolves the asset bound to a numbered edition of the master.
func (r *Registry) EditionAsset(master token.AssetID, number uint64) (token.AssetID, bool) {
	out := new(Edition)
	ok, err := r.st.KVGet(editionKey(master, number), out)
	if err != nil || !ok {
		return token.AssetID{}, false
	}
	return out.Asset, true
}
