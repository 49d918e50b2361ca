package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/components/tally"
	"github.com/aprp/electionbot/src/config"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *ledger.Memory) {
	t.Helper()
	m := ledger.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.EnsureTable(ctx, ledger.TableSignups))
	require.NoError(t, m.EnsureTable(ctx, ledger.TableGeneral))
	require.NoError(t, m.EnsureTable(ctx, ledger.TableCycles))

	cfg := config.Config{JWTSecret: "test-secret", AdminAPIKey: "test-admin-key"}
	clock := cycle.NewService(m)
	require.NoError(t, clock.Bootstrap(ctx))
	candidacies := candidacy.NewStore(m)
	tallies := tally.NewEngine(m, candidacies)
	polls := poll.NewEngine(candidacies)

	return New(cfg, clock, candidacies, tallies, polls), m
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/v1/auth/token", "", gin.H{"key": "test-admin-key"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestTimeEndpoint(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/v1/time", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state types.CycleState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(1990, state.Year)
	assert.Equal(types.PhaseSignups, state.Phase)
}

func TestSignupsEndpointFiltersByState(t *testing.T) {
	assert := assert.New(t)
	r, m := newTestServer(t)
	ctx := context.Background()

	colRow := candidacy.FormatRow(types.Candidacy{
		UserID: "u1", Name: "Alice", SeatID: "COL-GOV",
		Party: types.PartyDemocrats, State: "Columbia", Office: "Governor", Stamina: 100,
	})
	ausRow := candidacy.FormatRow(types.Candidacy{
		UserID: "u2", Name: "Bob", SeatID: "AUS-SEN",
		Party: types.PartyRepublicans, State: "Austin", Office: "Senator", Stamina: 100,
	})
	require.NoError(t, m.AppendRow(ctx, ledger.TableSignups, colRow))
	require.NoError(t, m.AppendRow(ctx, ledger.TableSignups, ausRow))

	w := doJSON(r, http.MethodGet, "/v1/signups/Columbia", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Signups []types.Candidacy `json:"signups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Signups, 1)
	assert.Equal("Alice", resp.Signups[0].Name)

	w = doJSON(r, http.MethodGet, "/v1/signups/Atlantis", "", nil)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestRegionPollEmptyRace(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/v1/regionpoll/Governor/Columbia", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/v1/admin/pause", "", gin.H{"paused": true})
	assert.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/admin/pause", "not-a-jwt", gin.H{"paused": true})
	assert.Equal(http.StatusUnauthorized, w.Code)
}

func TestAuthTokenRejectsBadKey(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/v1/auth/token", "", gin.H{"key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminPauseFlow(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestServer(t)
	token := adminToken(t, r)

	w := doJSON(r, http.MethodPost, "/v1/admin/pause", token, gin.H{"paused": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/time", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state types.CycleState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(state.Paused)
}

func TestAdminDateValidation(t *testing.T) {
	assert := assert.New(t)
	r, _ := newTestServer(t)
	token := adminToken(t, r)

	w := doJSON(r, http.MethodPost, "/v1/admin/date", token, gin.H{"month": 13})
	assert.Equal(http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/admin/date", token, gin.H{"year": 1992, "month": 12})
	require.Equal(t, http.StatusOK, w.Code)
	var state types.CycleState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(types.PhaseGeneralElection, state.Phase)
}

func TestAdminTallyAndTransfer(t *testing.T) {
	assert := assert.New(t)
	r, m := newTestServer(t)
	ctx := context.Background()
	token := adminToken(t, r)

	row := candidacy.FormatRow(types.Candidacy{
		UserID: "u1", Name: "Alice", SeatID: "COL-GOV",
		Party: types.PartyDemocrats, State: "Columbia", Office: "Governor",
		Stamina: 100, Points: 12,
	})
	require.NoError(t, m.AppendRow(ctx, ledger.TableSignups, row))

	w := doJSON(r, http.MethodPost, "/v1/admin/tally", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tallyResp struct {
		Winners int `json:"winners"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tallyResp))
	assert.Equal(1, tallyResp.Winners)

	w = doJSON(r, http.MethodPost, "/v1/admin/transfer", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var transferResp struct {
		Transferred int `json:"transferred"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &transferResp))
	assert.Equal(1, transferResp.Transferred)
}
