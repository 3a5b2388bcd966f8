package metadata

import "errors"

var (
	ErrMetadataExists    = errors.New("metadata: record already exists")
	ErrMetadataNotFound  = errors.New("metadata: record not found")
	ErrMasterExists      = errors.New("metadata: master edition already exists")
	ErrMasterNotFound    = errors.New("metadata: master edition not found")
	ErrEditionOutOfOrder = errors.New("metadata: edition number out of order")
	ErrEditionCapReached = errors.New("metadata: edition cap reached")
)
