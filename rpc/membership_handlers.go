package rpc

import (
	"net/http"

	"cepchain/core"
	"cepchain/native/membership"
)

type initCatalogParams struct {
	Caller       string `json:"caller"`
	CommunityID  string `json:"communityId"`
	MembershipID uint64 `json:"membershipId"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	BaseURI      string `json:"baseUri"`
	MaxSupply    uint64 `json:"maxSupply"`
	Elastic      bool   `json:"elastic"`
	MaxTiers     uint8  `json:"maxTiers"`
}

type createTierParams struct {
	Caller    string `json:"caller"`
	CatalogID string `json:"catalogId"`
	TierID    string `json:"tierId"`
	Duration  uint64 `json:"duration"`
	IsOpen    bool   `json:"isOpen"`
	TierURI   string `json:"tierUri"`
}

type mintMembershipParams struct {
	Caller    string `json:"caller"`
	CatalogID string `json:"catalogId"`
	TierIndex uint8  `json:"tierIndex"`
	Recipient string `json:"recipient"`
}

type catalogQueryParams struct {
	CatalogID string `json:"catalogId"`
}

type tierResult struct {
	TierID   string `json:"tierId"`
	Duration uint64 `json:"duration"`
	IsOpen   bool   `json:"isOpen"`
	TierURI  string `json:"tierUri"`
}

type catalogResult struct {
	ID           string       `json:"id"`
	Community    string       `json:"communityId"`
	MembershipID uint64       `json:"membershipId"`
	Name         string       `json:"name"`
	Symbol       string       `json:"symbol"`
	BaseURI      string       `json:"baseUri"`
	MaxSupply    uint64       `json:"maxSupply"`
	Elastic      bool         `json:"elastic"`
	MaxTiers     uint8        `json:"maxTiers"`
	TotalMinted  uint64       `json:"totalMinted"`
	TotalBurned  uint64       `json:"totalBurned"`
	Admin        string       `json:"admin"`
	Tiers        []tierResult `json:"tiers"`
}

func catalogToResult(c *membership.Catalog) *catalogResult {
	tiers := make([]tierResult, 0, len(c.Tiers))
	for _, tier := range c.Tiers {
		tiers = append(tiers, tierResult{
			TierID:   tier.TierID,
			Duration: tier.Duration,
			IsOpen:   tier.IsOpen,
			TierURI:  tier.TierURI,
		})
	}
	return &catalogResult{
		ID:           encodeID(c.ID),
		Community:    encodeID(c.Community),
		MembershipID: c.MembershipID,
		Name:         c.Name,
		Symbol:       c.Symbol,
		BaseURI:      c.BaseURI,
		MaxSupply:    c.MaxSupply,
		Elastic:      c.Elastic,
		MaxTiers:     c.MaxTiers,
		TotalMinted:  c.TotalMinted,
		TotalBurned:  c.TotalBurned,
		Admin:        encodeAddress(c.Admin),
		Tiers:        tiers,
	}
}

func (s *Server) handleMembershipInitCatalog(w http.ResponseWriter, req *RPCRequest) {
	var params initCatalogParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	communityID, err := decodeID(params.CommunityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var id membership.CatalogID
	if err := s.node.Execute(func(svc *core.Services) error {
		created, err := svc.Memberships.InitializeCatalog(caller, communityID, params.MembershipID, params.Name, params.Symbol, params.BaseURI, params.MaxSupply, params.Elastic, params.MaxTiers)
		id = created
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"catalogId": encodeID(id)})
}

func (s *Server) handleMembershipCreateTier(w http.ResponseWriter, req *RPCRequest) {
	var params createTierParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.CatalogID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return svc.Memberships.CreateTier(caller, id, params.TierID, params.Duration, params.IsOpen, params.TierURI)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"catalogId": encodeID(id), "tierId": params.TierID})
}

func (s *Server) handleMembershipMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintMembershipParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.CatalogID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := decodeAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return svc.Memberships.Mint(caller, id, params.TierIndex, recipient)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"catalogId": encodeID(id), "recipient": encodeAddress(recipient)})
}

func (s *Server) handleMembershipGet(w http.ResponseWriter, req *RPCRequest) {
	var params catalogQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.CatalogID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var result *catalogResult
	if err := s.node.View(func(svc *core.Services) error {
		catalog, ok := svc.Memberships.Get(id)
		if !ok {
			return membership.ErrCatalogNotFound
		}
		result = catalogToResult(catalog)
		return nil
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}
