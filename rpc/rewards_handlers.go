package rpc

import (
	"net/http"

	"cepchain/core"
	"cepchain/native/rewards"
)

type createRewardParams struct {
	Caller      string `json:"caller"`
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Supply      uint64 `json:"supply,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
}

type issueFungibleParams struct {
	Caller   string `json:"caller"`
	RewardID string `json:"rewardId"`
	Asset    string `json:"asset"`
	User     string `json:"user"`
	Amount   uint64 `json:"amount"`
}

type issueNonFungibleParams struct {
	Caller   string `json:"caller"`
	RewardID string `json:"rewardId"`
	Asset    string `json:"asset"`
	User     string `json:"user"`
}

type rewardQueryParams struct {
	RewardID string `json:"rewardId"`
}

type instanceQueryParams struct {
	RewardID string `json:"rewardId"`
	TokenID  uint64 `json:"tokenId"`
}

type rewardResult struct {
	ID          string `json:"id"`
	Community   string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
	Asset       string `json:"asset"`
	Supply      uint64 `json:"supply,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
	IssuedCount uint64 `json:"issuedCount"`
	IssuedUnits uint64 `json:"issuedUnits,omitempty"`
	CreatedAt   uint64 `json:"createdAt"`
	UpdatedAt   uint64 `json:"updatedAt"`
}

func rewardVariantLabel(v rewards.Variant) string {
	switch v {
	case rewards.VariantFungible:
		return "fungible"
	case rewards.VariantNonFungible:
		return "nonFungible"
	}
	return "unknown"
}

func rewardToResult(r *rewards.Reward) *rewardResult {
	return &rewardResult{
		ID:          encodeID(r.ID),
		Community:   encodeID(r.Community),
		Name:        r.Name,
		Description: r.Description,
		Variant:     rewardVariantLabel(r.Variant),
		Asset:       encodeID(r.Asset),
		Supply:      r.Supply,
		MetadataURI: r.MetadataURI,
		IssuedCount: r.IssuedCount,
		IssuedUnits: r.IssuedUnits,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type rewardCreateFn func(*core.Services, [20]byte, [32]byte, *createRewardParams) (rewards.ID, error)

func (s *Server) handleRewardCreate(w http.ResponseWriter, req *RPCRequest, create rewardCreateFn) {
	var params createRewardParams
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
	var id rewards.ID
	if err := s.node.Execute(func(svc *core.Services) error {
		created, err := create(svc, caller, communityID, &params)
		id = created
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"rewardId": encodeID(id)})
}

func (s *Server) handleRewardCreateFungible(w http.ResponseWriter, req *RPCRequest) {
	s.handleRewardCreate(w, req, func(svc *core.Services, caller [20]byte, communityID [32]byte, p *createRewardParams) (rewards.ID, error) {
		return svc.Rewards.CreateFungible(caller, communityID, p.Name, p.Description, p.Supply)
	})
}

func (s *Server) handleRewardCreateNonFungible(w http.ResponseWriter, req *RPCRequest) {
	s.handleRewardCreate(w, req, func(svc *core.Services, caller [20]byte, communityID [32]byte, p *createRewardParams) (rewards.ID, error) {
		return svc.Rewards.CreateNonFungible(caller, communityID, p.Name, p.Description, p.MetadataURI)
	})
}

func (s *Server) handleRewardInitUserIndex(w http.ResponseWriter, req *RPCRequest) {
	var params userIndexParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return svc.Rewards.InitUserIndex(user)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"user": encodeAddress(user)})
}

func (s *Server) handleRewardIssueFungible(w http.ResponseWriter, req *RPCRequest) {
	var params issueFungibleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.RewardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var award *rewards.UserReward
	if err := s.node.Execute(func(svc *core.Services) error {
		issued, err := svc.Rewards.IssueFungible(caller, id, asset, user, params.Amount)
		award = issued
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"rewardId": encodeID(award.Reward),
		"user":     encodeAddress(award.User),
		"amount":   award.Amount,
	})
}

func (s *Server) handleRewardIssueNonFungible(w http.ResponseWriter, req *RPCRequest) {
	var params issueNonFungibleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.RewardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := decodeID(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var inst *rewards.Instance
	if err := s.node.Execute(func(svc *core.Services) error {
		issued, err := svc.Rewards.IssueNonFungible(caller, id, asset, user)
		inst = issued
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"rewardId": encodeID(inst.Reward),
		"owner":    encodeAddress(inst.Owner),
		"tokenId":  inst.TokenID,
	})
}

func (s *Server) handleRewardGet(w http.ResponseWriter, req *RPCRequest) {
	var params rewardQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.RewardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var result *rewardResult
	if err := s.node.View(func(svc *core.Services) error {
		r, ok := svc.Rewards.Get(id)
		if !ok {
			return rewards.ErrRewardNotFound
		}
		result = rewardToResult(r)
		return nil
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleRewardListUser(w http.ResponseWriter, req *RPCRequest) {
	var params userIndexParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var refs [][32]byte
	if err := s.node.View(func(svc *core.Services) error {
		listed, err := svc.Rewards.ListUserRewards(user)
		refs = listed
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, encodeIDs(refs))
}

func (s *Server) handleRewardGetInstance(w http.ResponseWriter, req *RPCRequest) {
	var params instanceQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.RewardID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var inst *rewards.Instance
	if err := s.node.View(func(svc *core.Services) error {
		found, ok := svc.Rewards.GetInstance(id, params.TokenID)
		if !ok {
			return rewards.ErrRewardNotFound
		}
		inst = found
		return nil
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"rewardId": encodeID(inst.Reward),
		"owner":    encodeAddress(inst.Owner),
		"tokenId":  inst.TokenID,
		"issuedAt": inst.IssuedAt,
	})
}
