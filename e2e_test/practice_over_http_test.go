//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/server"
	"github.com/jsphweid/chordcoach/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func fetch(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	require.NoError(t, fetch(url, v))
}

// voicing spells task around middle C with the requested inversion in the bass.
func voicing(t *testing.T, task model.PracticeTask) []int {
	t.Helper()
	pc, ok := chord.PitchClass(task.Root)
	require.True(t, ok)
	tmpl, ok := chord.Lookup(task.TemplateName)
	require.True(t, ok)
	return chord.Voicing(pc, tmpl, task.TargetInversion)
}

func TestPracticeSessionOverHTTP(t *testing.T) {
	agg := aggregator.New(aggregator.WithStabilityWindow(80 * time.Millisecond))
	defer agg.Dispose()
	opts := session.DefaultOptions()
	opts.SessionLength = 2
	opts.MinHold = 30 * time.Millisecond
	opts.FeedbackDuration = 200 * time.Millisecond
	opts.Seed = 2026
	engine, err := session.New(opts)
	require.NoError(t, err)
	defer engine.Dispose()
	engine.Attach(agg)

	srv := httptest.NewServer(server.New(agg, engine, nil).Handler())
	defer srv.Close()

	resp := post(t, srv.URL+"/session/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		var state model.SessionResponse
		getJSON(t, srv.URL+"/session", &state)
		require.Equal(t, model.WaitingForInput, state.State)
		require.NotNil(t, state.Task)
		notes := voicing(t, *state.Task)

		for _, n := range notes {
			resp := post(t, srv.URL+"/midi", model.MidiRequestBody{Bytes: []int{0x90, n, 100}})
			require.Equal(t, http.StatusNoContent, resp.StatusCode)
		}
		require.Eventually(t, func() bool {
			var attempts []model.AttemptResult
			return fetch(srv.URL+"/session/attempts", &attempts) == nil && len(attempts) == i+1
		}, 2*time.Second, 10*time.Millisecond)
		for _, n := range notes {
			post(t, srv.URL+"/midi", model.MidiRequestBody{Bytes: []int{0x80, n, 0}})
		}
		require.Eventually(t, func() bool {
			var state model.SessionResponse
			return fetch(srv.URL+"/session", &state) == nil && state.TaskIndex == i+1
		}, 2*time.Second, 10*time.Millisecond)
	}

	var stats model.SessionStats
	getJSON(t, srv.URL+"/session/stats", &stats)
	assert := assert.New(t)
	assert.Equal(2, stats.Total)
	assert.Equal(2, stats.Correct)
	assert.Equal(200, stats.Score)
	assert.Equal(100.0, stats.Accuracy)

	var state model.SessionResponse
	getJSON(t, srv.URL+"/session", &state)
	assert.Equal(model.Completed, state.State)
}
