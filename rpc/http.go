package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"cepchain/core"
	"cepchain/native/achievement"
	nativecommon "cepchain/native/common"
	"cepchain/native/community"
	"cepchain/native/membership"
	"cepchain/native/metadata"
	"cepchain/native/rewards"
	"cepchain/native/token"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeNotFound       = -32004
)

// Server exposes the engagement ledger over JSON-RPC 2.0. Mutating methods
// run inside a node transition so each call lands atomically.
type Server struct {
	node      *core.Node
	authToken string
}

// NewServer creates a server bound to the node. A bearer token read from
// CEP_RPC_TOKEN gates mutating methods when set.
func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv("CEP_RPC_TOKEN")),
	}
}

// Start begins serving JSON-RPC requests on the provided address.
func (s *Server) Start(addr string) error {
	slog.Info("starting JSON-RPC server", "addr", addr)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.authToken)) == 1
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", err.Error())
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "jsonrpc version must be 2.0", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
		return
	}
	if handler.mutating && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "missing or invalid bearer token", nil)
		return
	}
	handler.fn(w, &req)
}

type method struct {
	mutating bool
	fn       func(http.ResponseWriter, *RPCRequest)
}

func (s *Server) methods() map[string]method {
	return map[string]method{
		"community_initState":         {true, s.handleCommunityInitState},
		"community_updateGlobalAdmin": {true, s.handleCommunityUpdateGlobalAdmin},
		"community_create":            {true, s.handleCommunityCreate},
		"community_update":            {true, s.handleCommunityUpdate},
		"community_addAdmin":          {true, s.handleCommunityAddAdmin},
		"community_removeAdmin":       {true, s.handleCommunityRemoveAdmin},
		"community_get":               {false, s.handleCommunityGet},
		"community_list":              {false, s.handleCommunityList},
		"community_listAchievements":  {false, s.handleCommunityListAchievements},

		"achievement_createPlain":       {true, s.handleAchievementCreatePlain},
		"achievement_createFungible":    {true, s.handleAchievementCreateFungible},
		"achievement_createNonFungible": {true, s.handleAchievementCreateNonFungible},
		"achievement_initUserIndex":     {true, s.handleAchievementInitUserIndex},
		"achievement_award":             {true, s.handleAchievementAward},
		"achievement_get":               {false, s.handleAchievementGet},
		"achievement_listUser":          {false, s.handleAchievementListUser},

		"membership_initCatalog": {true, s.handleMembershipInitCatalog},
		"membership_createTier":  {true, s.handleMembershipCreateTier},
		"membership_mint":        {true, s.handleMembershipMint},
		"membership_get":         {false, s.handleMembershipGet},

		"reward_createFungible":    {true, s.handleRewardCreateFungible},
		"reward_createNonFungible": {true, s.handleRewardCreateNonFungible},
		"reward_initUserIndex":     {true, s.handleRewardInitUserIndex},
		"reward_issueFungible":     {true, s.handleRewardIssueFungible},
		"reward_issueNonFungible":  {true, s.handleRewardIssueNonFungible},
		"reward_get":               {false, s.handleRewardGet},
		"reward_listUser":          {false, s.handleRewardListUser},
		"reward_getInstance":       {false, s.handleRewardGetInstance},
	}
}

// decodeParams enforces the single-parameter-object calling convention.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func decodeAddress(value string) ([20]byte, error) {
	if !common.IsHexAddress(value) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

func decodeID(value string) ([32]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != common.HashLength {
		return [32]byte{}, fmt.Errorf("invalid identifier %q", value)
	}
	return common.BytesToHash(raw), nil
}

func encodeID(id [32]byte) string {
	return common.Hash(id).Hex()
}

func encodeAddress(addr [20]byte) string {
	return common.Address(addr).Hex()
}

func encodeIDs(ids [][32]byte) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, encodeID(id))
	}
	return out
}

// writeEngineError maps engine sentinel errors to JSON-RPC error responses.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeServerError
	switch {
	case errors.Is(err, community.ErrCommunityNotFound),
		errors.Is(err, achievement.ErrAchievementNotFound),
		errors.Is(err, achievement.ErrIndexNotFound),
		errors.Is(err, membership.ErrCatalogNotFound),
		errors.Is(err, rewards.ErrRewardNotFound),
		errors.Is(err, rewards.ErrIndexNotFound),
		errors.Is(err, token.ErrAssetNotFound),
		errors.Is(err, metadata.ErrMetadataNotFound):
		status = http.StatusNotFound
		code = codeNotFound
	case errors.Is(err, community.ErrUnauthorized),
		errors.Is(err, membership.ErrUnauthorized),
		errors.Is(err, token.ErrMintUnauthorized):
		status = http.StatusForbidden
		code = codeUnauthorized
	case errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, id, code, err.Error(), nil)
}
