package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cepchain/core"
	"cepchain/storage"
)

const (
	adminHex = "0x00000000000000000000000000000000000000A1"
	userHex  = "0x00000000000000000000000000000000000000B2"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	node := core.NewNode(storage.NewMemDB())
	node.SetAuthority([20]byte{19: 0xEE})
	server := NewServer(node)
	ts := httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(ts.Close)
	return server, ts
}

func call(t *testing.T, ts *httptest.Server, method string, params interface{}) (*RPCResponse, int) {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := new(RPCResponse)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(decoded))
	return decoded, resp.StatusCode
}

func mustResult(t *testing.T, resp *RPCResponse) map[string]interface{} {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected RPC error: %+v", resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "result is not an object: %T", resp.Result)
	return result
}

func TestCommunityLifecycleOverRPC(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, "community_initState", map[string]string{"admin": adminHex})
	mustResult(t, resp)

	resp, _ = call(t, ts, "community_create", map[string]interface{}{
		"caller":      adminHex,
		"name":        "Acme Arcade",
		"description": "Retro gaming community",
		"tags":        []string{"arcade"},
	})
	communityID := mustResult(t, resp)["communityId"].(string)
	require.Len(t, communityID, 66)

	resp, _ = call(t, ts, "community_get", map[string]string{"communityId": communityID})
	got := mustResult(t, resp)
	require.Equal(t, "Acme Arcade", got["name"])
	admins := got["admins"].([]interface{})
	require.Len(t, admins, 1)
	// Addresses come back EIP-55 checksummed.
	require.True(t, strings.EqualFold(adminHex, admins[0].(string)))

	resp, _ = call(t, ts, "community_list", map[string]interface{}{})
	require.Nil(t, resp.Error)
	ids := resp.Result.([]interface{})
	require.Len(t, ids, 1)
	require.Equal(t, communityID, ids[0])
}

func TestAchievementAwardOverRPC(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, "community_initState", map[string]string{"admin": adminHex})
	mustResult(t, resp)
	resp, _ = call(t, ts, "community_create", map[string]interface{}{
		"caller": adminHex, "name": "Acme", "description": "desc",
	})
	communityID := mustResult(t, resp)["communityId"].(string)

	resp, _ = call(t, ts, "achievement_createPlain", map[string]interface{}{
		"caller":      adminHex,
		"communityId": communityID,
		"name":        "First Login",
		"description": "Logged in once",
		"points":      10,
	})
	achievementID := mustResult(t, resp)["achievementId"].(string)

	// Award before the user index exists must fail and leave no state.
	resp, status := call(t, ts, "achievement_award", map[string]interface{}{
		"caller": adminHex, "achievementId": achievementID, "user": userHex,
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, http.StatusNotFound, status)

	resp, _ = call(t, ts, "achievement_initUserIndex", map[string]string{"user": userHex})
	mustResult(t, resp)
	resp, _ = call(t, ts, "achievement_award", map[string]interface{}{
		"caller": adminHex, "achievementId": achievementID, "user": userHex,
	})
	award := mustResult(t, resp)
	require.Equal(t, achievementID, award["achievementId"])
	require.True(t, strings.EqualFold(userHex, award["user"].(string)))

	resp, _ = call(t, ts, "achievement_listUser", map[string]string{"user": userHex})
	require.Nil(t, resp.Error)
	list := resp.Result.([]interface{})
	require.Len(t, list, 1)
	require.Equal(t, achievementID, list[0])
}

func TestRewardIssuanceOverRPC(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, "community_initState", map[string]string{"admin": adminHex})
	mustResult(t, resp)
	resp, _ = call(t, ts, "community_create", map[string]interface{}{
		"caller": adminHex, "name": "Acme", "description": "desc",
	})
	communityID := mustResult(t, resp)["communityId"].(string)

	resp, _ = call(t, ts, "reward_createFungible", map[string]interface{}{
		"caller":      adminHex,
		"communityId": communityID,
		"name":        "Arcade Credits",
		"description": "Spendable credits",
		"supply":      100,
	})
	rewardID := mustResult(t, resp)["rewardId"].(string)

	resp, _ = call(t, ts, "reward_get", map[string]string{"rewardId": rewardID})
	asset := mustResult(t, resp)["asset"].(string)

	resp, _ = call(t, ts, "reward_initUserIndex", map[string]string{"user": userHex})
	mustResult(t, resp)

	resp, _ = call(t, ts, "reward_issueFungible", map[string]interface{}{
		"caller": adminHex, "rewardId": rewardID, "asset": asset, "user": userHex, "amount": 60,
	})
	issued := mustResult(t, resp)
	require.Equal(t, float64(60), issued["amount"])

	resp, _ = call(t, ts, "reward_issueFungible", map[string]interface{}{
		"caller": adminHex, "rewardId": rewardID, "asset": asset, "user": userHex, "amount": 50,
	})
	require.NotNil(t, resp.Error, "issuing beyond remaining supply must fail")
	require.Contains(t, resp.Error.Message, "insufficient reward supply")
}

func TestMethodNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, status := call(t, ts, "community_destroy", map[string]interface{}{})
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestInvalidParamsRejected(t *testing.T) {
	_, ts := newTestServer(t)

	resp, status := call(t, ts, "community_create", map[string]interface{}{
		"caller": "not-an-address", "name": "Acme", "description": "desc",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	// Non-hex digits in a correctly sized identifier must be rejected up
	// front rather than zero-filled into a lookup that misses.
	badID := "0x" + strings.Repeat("zz", 32)
	resp, status = call(t, ts, "community_get", map[string]string{"communityId": badID})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestBearerTokenGatesMutations(t *testing.T) {
	server, ts := newTestServer(t)
	server.authToken = "secret"

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "community_initState",
		"params": []interface{}{map[string]string{"admin": adminHex}},
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", "secret"))
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	require.Equal(t, http.StatusOK, authed.StatusCode)

	// Read-only methods stay open.
	readResp, _ := call(t, ts, "community_list", map[string]interface{}{})
	require.Nil(t, readResp.Error)
}
