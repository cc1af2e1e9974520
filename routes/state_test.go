package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorjacobs/go-voltalis/bridge"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

type fakeState struct {
	appliances []bridge.ApplianceState
}

func (f *fakeState) State() bridge.State {
	return bridge.State{
		Appliances: f.appliances,
		Programs:   []bridge.ProgramState{},
		LastPoll:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (f *fakeState) Appliance(id int) (bridge.ApplianceState, bool) {
	for _, appliance := range f.appliances {
		if appliance.ID == id {
			return appliance, true
		}
	}

	return bridge.ApplianceState{}, false
}

func newRouter() http.Handler {
	state := &fakeState{appliances: []bridge.ApplianceState{{
		ApplianceData:   voltalis.ApplianceData{ID: 1, Name: "salon", ApplianceType: voltalis.ApplianceTypeHeater},
		Reachable:       true,
		ManualSettingID: 42,
	}}}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("voltalis_polls_total 1\n"))
	})

	return New(state, metrics)
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

	return recorder
}

func TestState(t *testing.T) {
	recorder := get(t, newRouter(), "/state")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "2024-01-02T03:04:05Z", body["last_poll"])
	assert.NotContains(t, body, "last_error")

	appliances := body["appliances"].([]any)
	require.Len(t, appliances, 1)
	appliance := appliances[0].(map[string]any)
	assert.Equal(t, "salon", appliance["name"])
	assert.Equal(t, float64(42), appliance["manualSettingId"])
	assert.Equal(t, true, appliance["reachable"])
}

func TestAppliance(t *testing.T) {
	router := newRouter()

	recorder := get(t, router, "/appliances/1")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"applianceType":"HEATER"`)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/appliances/2").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/appliances/salon").Code)
}

func TestMetrics(t *testing.T) {
	recorder := get(t, newRouter(), "/metrics")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "voltalis_polls_total")
}
