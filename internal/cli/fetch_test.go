package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers getAccountInfo with data for known accounts and
// records the commitment of each request.
func rpcServer(t *testing.T, accounts map[string][]byte, commitments *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params []any           `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAccountInfo", req.Method)
		if commitments != nil && len(req.Params) > 1 {
			if opts, ok := req.Params[1].(map[string]any); ok {
				c, _ := opts["commitment"].(string)
				*commitments = append(*commitments, c)
			}
		}

		var value any
		if data, ok := accounts[req.Params[0].(string)]; ok {
			value = map[string]any{
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
				"lamports":   1,
				"owner":      programAddress,
				"rentEpoch":  0,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]any{
				"context": map[string]any{"slot": 1},
				"value":   value,
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func counterAccountData(t *testing.T) []byte {
	t.Helper()
	data, err := hex.DecodeString(counterAccountHex)
	require.NoError(t, err)
	return data
}

func TestFetchNamedAccount(t *testing.T) {
	var commitments []string
	srv := rpcServer(t, map[string][]byte{rentSysvar: counterAccountData(t)}, &commitments)

	stdout, err := execute(t, "fetch", idlPath("legacy_counter.json"), rentSysvar, "Counter",
		"--rpc", srv.URL, "--commitment", "finalized")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Counter "+rentSysvar)
	assert.Contains(t, stdout, `"count":41`)
	assert.Equal(t, []string{"finalized"}, commitments)
}

func TestFetchMatchesDiscriminator(t *testing.T) {
	srv := rpcServer(t, map[string][]byte{rentSysvar: counterAccountData(t)}, nil)

	stdout, err := execute(t, "--format", "json", "fetch", idlPath("new_counter.json"), rentSysvar, "--rpc", srv.URL)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   FetchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Counter", resp.Data.Account)
	assert.Equal(t, rentSysvar, resp.Data.Address)
}

func TestFetchAccountNotFound(t *testing.T) {
	srv := rpcServer(t, nil, nil)

	stdout, err := execute(t, "fetch", idlPath("legacy_counter.json"), rentSysvar, "Counter", "--rpc", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeRPC)
	assert.Contains(t, stdout, "account not found")
}

func TestFetchWrongLayout(t *testing.T) {
	srv := rpcServer(t, map[string][]byte{rentSysvar: {1, 2, 3, 4, 5, 6, 7, 8, 9}}, nil)

	_, err := execute(t, "fetch", idlPath("legacy_counter.json"), rentSysvar, "Counter", "--rpc", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitDiscriminator, GetExitCode(err))
}

func TestFetchInvalidAddress(t *testing.T) {
	_, err := execute(t, "fetch", idlPath("legacy_counter.json"), "not-a-key", "--rpc", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitMalformedDocument, GetExitCode(err))
}

func TestFetchInvalidCommitment(t *testing.T) {
	_, err := execute(t, "fetch", idlPath("legacy_counter.json"), rentSysvar, "--commitment", "eventual")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
