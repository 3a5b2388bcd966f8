package rpc

import (
	"net/http"

	"cepchain/core"
	"cepchain/native/achievement"
)

type createAchievementParams struct {
	Caller      string `json:"caller"`
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Criteria    string `json:"criteria,omitempty"`
	Points      uint32 `json:"points"`
	Supply      uint64 `json:"supply,omitempty"`
	MetadataURI string `json:"metadataUri,omitempty"`
}

type achievementQueryParams struct {
	AchievementID string `json:"achievementId"`
}

type userIndexParams struct {
	User string `json:"user"`
}

type awardParams struct {
	Caller        string `json:"caller"`
	AchievementID string `json:"achievementId"`
	User          string `json:"user"`
}

type achievementResult struct {
	ID           string `json:"id"`
	Community    string `json:"communityId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Criteria     string `json:"criteria,omitempty"`
	Points       uint32 `json:"points"`
	Variant      string `json:"variant"`
	Asset        string `json:"asset,omitempty"`
	Supply       uint64 `json:"supply,omitempty"`
	EditionCount uint64 `json:"editionCount,omitempty"`
	MetadataURI  string `json:"metadataUri,omitempty"`
	CreatedAt    uint64 `json:"createdAt"`
	UpdatedAt    uint64 `json:"updatedAt"`
}

func variantLabel(v achievement.Variant) string {
	switch v {
	case achievement.VariantPlain:
		return "plain"
	case achievement.VariantFungible:
		return "fungible"
	case achievement.VariantNonFungible:
		return "nonFungible"
	}
	return "unknown"
}

func achievementToResult(a *achievement.Achievement) *achievementResult {
	result := &achievementResult{
		ID:           encodeID(a.ID),
		Community:    encodeID(a.Community),
		Name:         a.Name,
		Description:  a.Description,
		Criteria:     a.Criteria,
		Points:       a.Points,
		Variant:      variantLabel(a.Variant),
		Supply:       a.Supply,
		EditionCount: a.EditionCount,
		MetadataURI:  a.MetadataURI,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Variant != achievement.VariantPlain {
		result.Asset = encodeID(a.Asset)
	}
	return result
}

type achievementCreateFn func(*core.Services, [20]byte, [32]byte, *createAchievementParams) (achievement.ID, error)

func (s *Server) handleAchievementCreate(w http.ResponseWriter, req *RPCRequest, create achievementCreateFn) {
	var params createAchievementParams
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
	var id achievement.ID
	if err := s.node.Execute(func(svc *core.Services) error {
		created, err := create(svc, caller, communityID, &params)
		id = created
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"achievementId": encodeID(id)})
}

func (s *Server) handleAchievementCreatePlain(w http.ResponseWriter, req *RPCRequest) {
	s.handleAchievementCreate(w, req, func(svc *core.Services, caller [20]byte, communityID [32]byte, p *createAchievementParams) (achievement.ID, error) {
		return svc.Achievements.CreatePlain(caller, communityID, p.Name, p.Description, p.Criteria, p.Points)
	})
}

func (s *Server) handleAchievementCreateFungible(w http.ResponseWriter, req *RPCRequest) {
	s.handleAchievementCreate(w, req, func(svc *core.Services, caller [20]byte, communityID [32]byte, p *createAchievementParams) (achievement.ID, error) {
		return svc.Achievements.CreateFungible(caller, communityID, p.Name, p.Description, p.Criteria, p.Points, p.Supply)
	})
}

func (s *Server) handleAchievementCreateNonFungible(w http.ResponseWriter, req *RPCRequest) {
	s.handleAchievementCreate(w, req, func(svc *core.Services, caller [20]byte, communityID [32]byte, p *createAchievementParams) (achievement.ID, error) {
		return svc.Achievements.CreateNonFungible(caller, communityID, p.Name, p.Description, p.Criteria, p.Points, p.MetadataURI)
	})
}

func (s *Server) handleAchievementInitUserIndex(w http.ResponseWriter, req *RPCRequest) {
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
		return svc.Achievements.InitUserIndex(user)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"user": encodeAddress(user)})
}

func (s *Server) handleAchievementAward(w http.ResponseWriter, req *RPCRequest) {
	var params awardParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.AchievementID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	user, err := decodeAddress(params.User)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var award *achievement.UserAward
	if err := s.node.Execute(func(svc *core.Services) error {
		granted, err := svc.Achievements.Award(caller, id, user)
		award = granted
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"achievementId": encodeID(award.Achievement),
		"communityId":   encodeID(award.Community),
		"user":          encodeAddress(award.User),
		"awardedAt":     award.AwardedAt,
	})
}

func (s *Server) handleAchievementGet(w http.ResponseWriter, req *RPCRequest) {
	var params achievementQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.AchievementID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var result *achievementResult
	if err := s.node.View(func(svc *core.Services) error {
		a, ok := svc.Achievements.Get(id)
		if !ok {
			return achievement.ErrAchievementNotFound
		}
		result = achievementToResult(a)
		return nil
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleAchievementListUser(w http.ResponseWriter, req *RPCRequest) {
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
		listed, err := svc.Achievements.ListUserAchievements(user)
		refs = listed
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, encodeIDs(refs))
}
