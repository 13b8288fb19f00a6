package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endowment-sim/endowment-sim/sim"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := NewServer()
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeBody(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, decodeBody(resp, out))
	}
	return resp
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, decodeBody(resp, out))
	}
	return resp
}

func TestInitStepState(t *testing.T) {
	ts := newTestServer(t)

	var initResp struct {
		Status string    `json:"status"`
		Model  sim.State `json:"model"`
	}
	resp := postJSON(t, ts, "/api/init", `{"seed": 7, "num_holders": 40}`, &initResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "initialized", initResp.Status)
	assert.Equal(t, 0, initResp.Model.Step)
	assert.Equal(t, 40, initResp.Model.NumHolders)

	var stepResp struct {
		Model sim.State `json:"model"`
	}
	resp = postJSON(t, ts, "/api/step", "", &stepResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, stepResp.Model.Step)

	var runResp struct {
		StepsRun int       `json:"steps_run"`
		Model    sim.State `json:"model"`
	}
	resp = postJSON(t, ts, "/api/run", `{"steps": 5}`, &runResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, runResp.StepsRun)
	assert.Equal(t, 6, runResp.Model.Step)
}

func TestInitMixReplacesDefaults(t *testing.T) {
	ts := newTestServer(t)

	var initResp struct {
		Model sim.State `json:"model"`
	}
	resp := postJSON(t, ts, "/api/init",
		`{"seed": 1, "archetype_mix": {"believer": 0.5, "speculator": 0.5}}`, &initResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The request's mix replaces the default wholesale; no default
	// entries survive alongside it.
	assert.Equal(t, map[sim.ArchetypeID]float64{
		sim.ArchetypeBeliever:   0.5,
		sim.ArchetypeSpeculator: 0.5,
	}, initResp.Model.Params.ArchetypeMix)
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	ts := newTestServer(t)

	var errResp struct {
		Error string `json:"error"`
	}
	resp := postJSON(t, ts, "/api/init", `{"burn_rate": 1.5}`, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errResp.Error)

	// The previous instance must still answer queries after a bad init.
	resp = getJSON(t, ts, "/api/state", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHolderEndpoints(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/api/init", `{"seed": 1, "num_holders": 10}`, nil)

	var holders []sim.HolderView
	resp := getJSON(t, ts, "/api/holders", &holders)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, holders, 10)

	var one sim.HolderView
	resp = getJSON(t, ts, fmt.Sprintf("/api/holders/%d", holders[0].ID), &one)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, holders[0].ID, one.ID)

	resp = getJSON(t, ts, "/api/holders/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, ts, "/api/holders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProposalEndpoints(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/api/init", `{"seed": 1, "num_proposals": 4}`, nil)

	var proposals []sim.ProposalView
	resp := getJSON(t, ts, "/api/proposals", &proposals)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, proposals, 4)

	var one sim.ProposalView
	resp = getJSON(t, ts, fmt.Sprintf("/api/proposals/%d", proposals[0].ID), &one)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, proposals[0].ID, one.ID)

	resp = getJSON(t, ts, "/api/proposals/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistoryAndEvents(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/api/init", `{"seed": 3, "num_holders": 20}`, nil)
	postJSON(t, ts, "/api/run", `{"steps": 8}`, nil)

	var history []sim.MetricsRow
	getJSON(t, ts, "/api/history", &history)
	require.Len(t, history, 9) // step 0 plus 8 steps
	assert.Equal(t, 8, history[8].Step)

	var events []sim.Event
	getJSON(t, ts, "/api/events?limit=3", &events)
	assert.LessOrEqual(t, len(events), 3)

	resp := getJSON(t, ts, "/api/events?limit=oops", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReferenceEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var tiers []sim.MultiplierTier
	getJSON(t, ts, "/api/multipliers", &tiers)
	require.Len(t, tiers, 3)

	var defaults struct {
		Params         sim.Config         `json:"params"`
		EmissionParams map[string]float64 `json:"emission_params"`
	}
	getJSON(t, ts, "/api/defaults", &defaults)
	assert.Equal(t, sim.DefaultNumHolders, defaults.Params.NumHolders)
	assert.Equal(t, sim.Year0Emission, defaults.EmissionParams["year0_emission"])

	var arch struct {
		Archetypes []sim.Archetype `json:"archetypes"`
	}
	getJSON(t, ts, "/api/archetypes", &arch)
	assert.NotEmpty(t, arch.Archetypes)

	resp := getJSON(t, ts, "/api/participation", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunRejectsNegativeSteps(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts, "/api/run", `{"steps": -1}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
