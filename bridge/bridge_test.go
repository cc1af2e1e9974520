package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorjacobs/go-voltalis/config"
	"github.com/victorjacobs/go-voltalis/mqtttest"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

type fakeVoltalis struct {
	mutex        sync.Mutex
	heater       map[string]any
	boiler       map[string]any
	week         map[string]any
	away         map[string]any
	autodiag     []map[string]any
	failing      bool
	unauthorized bool
	logins       int
	puts         map[string]string
}

func newFakeVoltalis() *fakeVoltalis {
	return &fakeVoltalis{
		heater: map[string]any{
			"id":            1,
			"name":          "salon",
			"applianceType": "HEATER",
			"modulatorType": "VOLTALIS",
			"heatingLevel":  3,
			"programming": map[string]any{
				"progType":           "MANUAL",
				"isOn":               true,
				"mode":               "ECO",
				"untilFurtherNotice": false,
				"temperatureTarget":  19.5,
			},
		},
		boiler: map[string]any{
			"id":            2,
			"name":          "boiler",
			"applianceType": "WATER_HEATER",
			"programming":   map[string]any{"progType": "USER", "isOn": true, "temperatureTarget": 55},
		},
		week:     map[string]any{"id": 100, "name": "Week", "enabled": true},
		away:     map[string]any{"id": 200, "name": "Away", "enabled": false},
		autodiag: []map[string]any{{"idAppliance": 1, "status": "OK"}, {"idAppliance": 2, "status": "OK"}},
		puts:     make(map[string]string),
	}
}

func (f *fakeVoltalis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	body, _ := io.ReadAll(r.Body)

	if r.URL.Path == "/auth/login" {
		f.logins++
	}

	if f.unauthorized {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var response any
	switch r.Method + " " + r.URL.Path {
	case "POST /auth/login":
		response = map[string]any{"token": "token"}
	case "GET /api/account/me":
		response = map[string]any{"defaultSite": map[string]any{"id": 7}}
	case "GET /api/site/7/managed-appliance":
		response = []any{f.heater, f.boiler}
	case "GET /api/site/7/managed-appliance/1":
		response = f.heater
	case "GET /api/site/7/managed-appliance/2":
		response = f.boiler
	case "GET /api/site/7/manualsetting":
		response = []map[string]any{{"id": 42, "idAppliance": 1}}
	case "GET /api/site/7/programming/program":
		response = []any{f.week}
	case "GET /api/site/7/programming/program/100":
		response = f.week
	case "GET /api/site/7/quicksettings":
		response = []any{f.away}
	case "GET /api/site/7/autodiag":
		response = f.autodiag
	case "PUT /api/site/7/manualsetting/42":
		f.puts[r.URL.Path] = string(body)
		var setting map[string]any
		_ = json.Unmarshal(body, &setting)
		programming := f.heater["programming"].(map[string]any)
		programming["isOn"] = setting["isOn"]
		programming["mode"] = setting["mode"]
		programming["temperatureTarget"] = setting["temperatureTarget"]
		response = map[string]any{}
	case "PUT /api/site/7/programming/program/100":
		f.puts[r.URL.Path] = string(body)
		_ = json.Unmarshal(body, &f.week)
		response = map[string]any{}
	case "PUT /api/site/7/quicksettings/200/enable":
		f.puts[r.URL.Path] = string(body)
		_ = json.Unmarshal(body, &f.away)
		response = map[string]any{}
	default:
		http.NotFound(w, r)
		return
	}

	if f.failing {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (f *fakeVoltalis) put(path string) string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.puts[path]
}

type pollCounter struct {
	mutex   sync.Mutex
	results []string
}

func (p *pollCounter) ObservePoll(result string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.results = append(p.results, result)
}

func setupBridge(t *testing.T) (*Bridge, *fakeVoltalis, *mqtttest.Client, *pollCounter) {
	t.Helper()

	api := newFakeVoltalis()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg := &config.Configuration{
		Voltalis: config.Voltalis{Username: "user", Password: "pass", BaseURL: server.URL},
		Mqtt:     config.Mqtt{TopicPrefix: "voltalis", DiscoveryPrefix: "homeassistant"},
		Poll:     config.Poll{Interval: time.Minute, Timeout: 5 * time.Second},
	}

	client := voltalis.NewClient(cfg.Voltalis.Username, cfg.Voltalis.Password,
		voltalis.WithBaseURL(server.URL),
		voltalis.WithHTTPClient(server.Client()),
		voltalis.WithAutoLogin(true),
	)

	observer := &pollCounter{}
	b := New(cfg, client, observer)
	require.NoError(t, b.Setup(context.Background()))

	return b, api, mqtttest.NewClient(), observer
}

func TestRegisterEntities(t *testing.T) {
	b, _, m, _ := setupBridge(t)

	require.NoError(t, b.RegisterEntities(m))

	payload, ok := m.Last("homeassistant/climate/voltalis_appliance_1/config")
	require.True(t, ok)
	assert.Contains(t, payload, `"name":"Salon"`)

	_, ok = m.Last("homeassistant/water_heater/voltalis_appliance_2/config")
	assert.True(t, ok)
	_, ok = m.Last("homeassistant/switch/voltalis_program_100/config")
	assert.True(t, ok)
	_, ok = m.Last("homeassistant/switch/voltalis_program_200/config")
	assert.True(t, ok)
}

func TestSubscribeToCommands(t *testing.T) {
	b, _, m, _ := setupBridge(t)

	b.SubscribeToCommands(m)

	assert.ElementsMatch(t, []string{
		"voltalis/appliance/1/mode/cmd",
		"voltalis/appliance/1/preset/cmd",
		"voltalis/appliance/1/temperature/cmd",
		"voltalis/program/100/cmd",
		"voltalis/program/200/cmd",
	}, m.Subscribed())
}

func TestPoll(t *testing.T) {
	b, _, m, observer := setupBridge(t)

	require.NoError(t, b.Poll(context.Background(), m))

	expected := map[string]string{
		"voltalis/appliance/1/availability":      "online",
		"voltalis/appliance/1/mode/state":        "heat",
		"voltalis/appliance/1/action":            "heating",
		"voltalis/appliance/1/preset/state":      "eco",
		"voltalis/appliance/1/temperature/state": "19.5",
		"voltalis/appliance/2/mode/state":        "eco",
		"voltalis/appliance/2/temperature/state": "55",
		"voltalis/program/100/state":             "ON",
		"voltalis/program/200/state":             "OFF",
	}
	for topic, want := range expected {
		got, ok := m.Last(topic)
		require.True(t, ok, topic)
		assert.Equal(t, want, got, topic)
	}

	// Unchanged states are not published again.
	require.NoError(t, b.Poll(context.Background(), m))
	assert.Equal(t, 1, m.Count("voltalis/appliance/1/mode/state"))
	assert.Equal(t, []string{PollSuccess, PollSuccess}, observer.results)
	assert.False(t, b.State().LastPoll.IsZero())
}

func TestPoll_Unreachable(t *testing.T) {
	b, api, m, _ := setupBridge(t)

	api.mutex.Lock()
	api.autodiag = []map[string]any{{"idAppliance": 1, "status": "NOT_RESPONDING"}}
	api.mutex.Unlock()

	require.NoError(t, b.Poll(context.Background(), m))

	got, _ := m.Last("voltalis/appliance/1/availability")
	assert.Equal(t, "offline", got)
	got, _ = m.Last("voltalis/appliance/2/availability")
	assert.Equal(t, "online", got)
}

func TestPoll_Failure(t *testing.T) {
	b, api, m, observer := setupBridge(t)

	require.NoError(t, b.Poll(context.Background(), m))

	api.mutex.Lock()
	api.failing = true
	api.mutex.Unlock()

	err := b.Poll(context.Background(), m)

	var transportErr *voltalis.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, []string{PollSuccess, PollFailed}, observer.results)

	for _, topic := range []string{"voltalis/appliance/1/availability", "voltalis/appliance/2/availability", "voltalis/program/100/availability"} {
		got, _ := m.Last(topic)
		assert.Equal(t, "offline", got, topic)
	}
	assert.NotEmpty(t, b.State().LastError)
}

func TestPoll_Unauthorized(t *testing.T) {
	b, api, m, observer := setupBridge(t)

	require.NoError(t, b.Poll(context.Background(), m))

	api.mutex.Lock()
	api.unauthorized = true
	api.mutex.Unlock()

	err := b.Poll(context.Background(), m)
	require.ErrorIs(t, err, voltalis.ErrAuthentication)
	assert.Equal(t, []string{PollSuccess, PollUnauthorized}, observer.results)
	assert.Empty(t, b.voltalisClient.Cache().Get(voltalis.AuthToken), "token is dropped")

	for _, topic := range []string{"voltalis/appliance/1/availability", "voltalis/appliance/2/availability", "voltalis/program/200/availability"} {
		got, _ := m.Last(topic)
		assert.Equal(t, "offline", got, topic)
	}

	// The login of the next cycle is rejected as well.
	err = b.Poll(context.Background(), m)
	require.ErrorIs(t, err, voltalis.ErrAuthentication)
	assert.Equal(t, PollUnauthorized, observer.results[2])

	api.mutex.Lock()
	api.unauthorized = false
	logins := api.logins
	api.mutex.Unlock()

	require.NoError(t, b.Poll(context.Background(), m))
	assert.Equal(t, PollSuccess, observer.results[3])

	api.mutex.Lock()
	assert.Equal(t, logins+1, api.logins)
	api.mutex.Unlock()

	got, _ := m.Last("voltalis/appliance/1/availability")
	assert.Equal(t, "online", got)
}

func TestClimateCommands(t *testing.T) {
	b, api, m, _ := setupBridge(t)
	b.SubscribeToCommands(m)
	require.NoError(t, b.Poll(context.Background(), m))

	require.NoError(t, m.Deliver("voltalis/appliance/1/temperature/cmd", "21.5"))

	var setting map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.put("/api/site/7/manualsetting/42")), &setting))
	assert.Equal(t, float64(42), setting["id"])
	assert.Equal(t, float64(1), setting["idAppliance"])
	assert.Equal(t, "salon", setting["applianceName"])
	assert.Equal(t, "TEMPERATURE", setting["mode"])
	assert.Equal(t, true, setting["untilFurtherNotice"])
	assert.Equal(t, float64(21.5), setting["temperatureTarget"])
	assert.Equal(t, float64(3), setting["heatingLevel"])

	got, _ := m.Last("voltalis/appliance/1/temperature/state")
	assert.Equal(t, "21.5", got, "state is republished after the command")
	got, _ = m.Last("voltalis/appliance/1/preset/state")
	assert.Equal(t, "home", got)

	require.NoError(t, m.Deliver("voltalis/appliance/1/mode/cmd", "off"))
	require.NoError(t, json.Unmarshal([]byte(api.put("/api/site/7/manualsetting/42")), &setting))
	assert.Equal(t, false, setting["isOn"])
	assert.Equal(t, true, setting["enabled"])

	got, _ = m.Last("voltalis/appliance/1/mode/state")
	assert.Equal(t, "off", got)

	require.NoError(t, m.Deliver("voltalis/appliance/1/preset/cmd", "away"))
	require.NoError(t, json.Unmarshal([]byte(api.put("/api/site/7/manualsetting/42")), &setting))
	assert.Equal(t, "HORS_GEL", setting["mode"])
	assert.Equal(t, true, setting["isOn"])
	assert.Nil(t, setting["endDate"])
}

func TestClimateCommands_Auto(t *testing.T) {
	b, api, m, _ := setupBridge(t)
	b.SubscribeToCommands(m)

	require.NoError(t, m.Deliver("voltalis/appliance/1/mode/cmd", "auto"))

	var setting map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.put("/api/site/7/manualsetting/42")), &setting))
	assert.Equal(t, false, setting["enabled"])
	assert.Equal(t, float64(42), setting["id"])
	assert.Equal(t, "ECO", setting["mode"], "the rest of the setting is kept")
}

func TestSwitchCommands(t *testing.T) {
	b, api, m, _ := setupBridge(t)
	b.SubscribeToCommands(m)
	require.NoError(t, b.Poll(context.Background(), m))

	require.NoError(t, m.Deliver("voltalis/program/100/cmd", "OFF"))
	assert.JSONEq(t, `{"name":"Week","enabled":false}`, api.put("/api/site/7/programming/program/100"))
	got, _ := m.Last("voltalis/program/100/state")
	assert.Equal(t, "OFF", got)

	require.NoError(t, m.Deliver("voltalis/program/200/cmd", "ON"))
	assert.JSONEq(t, `{"enabled":true}`, api.put("/api/site/7/quicksettings/200/enable"))
	got, _ = m.Last("voltalis/program/200/state")
	assert.Equal(t, "ON", got)
}

func TestState(t *testing.T) {
	b, _, _, _ := setupBridge(t)

	state := b.State()
	require.Len(t, state.Appliances, 2)
	assert.Equal(t, 42, state.Appliances[0].ManualSettingID)
	assert.True(t, state.Appliances[0].Reachable)
	require.Len(t, state.Programs, 2)
	assert.Equal(t, voltalis.ProgramTypeDefault, state.Programs[1].Type)

	appliance, ok := b.Appliance(2)
	require.True(t, ok)
	assert.Equal(t, "boiler", appliance.Name)

	_, ok = b.Appliance(3)
	assert.False(t, ok)
}

func TestApplianceCommand_NoManualSetting(t *testing.T) {
	b, _, m, _ := setupBridge(t)

	boiler, ok := b.voltalisClient.Appliance(2)
	require.True(t, ok)

	err := b.applianceCommand(boiler, setTemperature)(m, "20")
	assert.ErrorContains(t, err, "no manual setting")
	assert.Empty(t, m.Published())
}
