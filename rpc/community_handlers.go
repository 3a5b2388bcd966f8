package rpc

import (
	"net/http"

	"cepchain/core"
	"cepchain/native/community"
)

type initStateParams struct {
	Admin string `json:"admin"`
}

type updateGlobalAdminParams struct {
	Caller   string `json:"caller"`
	NewAdmin string `json:"newAdmin"`
}

type createCommunityParams struct {
	Caller      string   `json:"caller"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Website     string   `json:"website,omitempty"`
	SocialMedia string   `json:"socialMedia,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type updateCommunityParams struct {
	Caller      string `json:"caller"`
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type communityAdminParams struct {
	Caller      string `json:"caller"`
	CommunityID string `json:"communityId"`
	Admin       string `json:"admin"`
}

type communityQueryParams struct {
	CommunityID string `json:"communityId"`
}

type communityResult struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Admins       []string `json:"admins"`
	Achievements []string `json:"achievements"`
	Memberships  []string `json:"memberships"`
	Rewards      []string `json:"rewards"`
	Website      string   `json:"website,omitempty"`
	SocialMedia  string   `json:"socialMedia,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CreatedAt    uint64   `json:"createdAt"`
	UpdatedAt    uint64   `json:"updatedAt"`
}

func communityToResult(c *community.Community) *communityResult {
	admins := make([]string, 0, len(c.Admins))
	for _, admin := range c.Admins {
		admins = append(admins, encodeAddress(admin))
	}
	return &communityResult{
		ID:           encodeID(c.ID),
		Name:         c.Name,
		Description:  c.Description,
		Admins:       admins,
		Achievements: encodeIDs(c.Achievements),
		Memberships:  encodeIDs(c.Memberships),
		Rewards:      encodeIDs(c.Rewards),
		Website:      c.Metadata.Website,
		SocialMedia:  c.Metadata.SocialMedia,
		Category:     c.Metadata.Category,
		Tags:         c.Metadata.Tags,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (s *Server) handleCommunityInitState(w http.ResponseWriter, req *RPCRequest) {
	var params initStateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	admin, err := decodeAddress(params.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		if err := svc.Communities.InitializeRegistry(); err != nil {
			return err
		}
		return svc.Communities.InitializeState(admin)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"admin": encodeAddress(admin)})
}

func (s *Server) handleCommunityUpdateGlobalAdmin(w http.ResponseWriter, req *RPCRequest) {
	var params updateGlobalAdminParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	newAdmin, err := decodeAddress(params.NewAdmin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return svc.Communities.UpdateGlobalAdmin(caller, newAdmin)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"admin": encodeAddress(newAdmin)})
}

func (s *Server) handleCommunityCreate(w http.ResponseWriter, req *RPCRequest) {
	var params createCommunityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	meta := community.Metadata{
		Website:     params.Website,
		SocialMedia: params.SocialMedia,
		Category:    params.Category,
		Tags:        params.Tags,
	}
	var id community.ID
	if err := s.node.Execute(func(svc *core.Services) error {
		created, err := svc.Communities.Create(caller, params.Name, params.Description, meta)
		id = created
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"communityId": encodeID(id)})
}

func (s *Server) handleCommunityUpdate(w http.ResponseWriter, req *RPCRequest) {
	var params updateCommunityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.CommunityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return svc.Communities.Update(caller, id, params.Name, params.Description)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"communityId": encodeID(id)})
}

func (s *Server) handleCommunityAddAdmin(w http.ResponseWriter, req *RPCRequest) {
	s.handleCommunityAdminChange(w, req, func(svc *core.Services, caller [20]byte, id community.ID, admin [20]byte) error {
		return svc.Communities.AddAdmin(caller, id, admin)
	})
}

func (s *Server) handleCommunityRemoveAdmin(w http.ResponseWriter, req *RPCRequest) {
	s.handleCommunityAdminChange(w, req, func(svc *core.Services, caller [20]byte, id community.ID, admin [20]byte) error {
		return svc.Communities.RemoveAdmin(caller, id, admin)
	})
}

func (s *Server) handleCommunityAdminChange(w http.ResponseWriter, req *RPCRequest, apply func(*core.Services, [20]byte, community.ID, [20]byte) error) {
	var params communityAdminParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := decodeID(params.CommunityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	admin, err := decodeAddress(params.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Execute(func(svc *core.Services) error {
		return apply(svc, caller, id, admin)
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"communityId": encodeID(id)})
}

func (s *Server) handleCommunityGet(w http.ResponseWriter, req *RPCRequest) {
	var params communityQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.CommunityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var result *communityResult
	if err := s.node.View(func(svc *core.Services) error {
		c, ok := svc.Communities.Get(id)
		if !ok {
			return community.ErrCommunityNotFound
		}
		result = communityToResult(c)
		return nil
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleCommunityListAchievements(w http.ResponseWriter, req *RPCRequest) {
	var params communityQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	id, err := decodeID(params.CommunityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var refs [][32]byte
	if err := s.node.View(func(svc *core.Services) error {
		listed, err := svc.Communities.ListAchievements(id)
		refs = listed
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, encodeIDs(refs))
}

func (s *Server) handleCommunityList(w http.ResponseWriter, req *RPCRequest) {
	var ids []community.ID
	if err := s.node.View(func(svc *core.Services) error {
		listed, err := svc.Communities.List()
		ids = listed
		return err
	}); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, encodeID(id))
	}
	writeResult(w, req.ID, encoded)
}
