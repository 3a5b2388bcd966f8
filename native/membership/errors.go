package membership

import "errors"

var (
	ErrFieldTooLong     = errors.New("membership: field too long")
	ErrUnauthorized     = errors.New("membership: unauthorized")
	ErrCatalogNotFound  = errors.New("membership: catalog not found")
	ErrCatalogExists    = errors.New("membership: catalog already exists")
	ErrMaxSupplyReached = errors.New("membership: max supply reached")
	ErrMaxTiersReached  = errors.New("membership: max tiers reached")
	ErrTierExists       = errors.New("membership: tier already exists")
	ErrInvalidTierIndex = errors.New("membership: invalid tier index")
)
