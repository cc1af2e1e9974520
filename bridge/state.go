package bridge

import (
	"time"

	"github.com/victorjacobs/go-voltalis/voltalis"
)

type ApplianceState struct {
	voltalis.ApplianceData
	Reachable       bool `json:"reachable"`
	ManualSettingID int  `json:"manualSettingId"`
}

type ProgramState struct {
	voltalis.ProgramData
	Type voltalis.ProgramType `json:"type"`
}

// State is a snapshot of everything the bridge knows, for the HTTP routes.
type State struct {
	Appliances []ApplianceState `json:"appliances"`
	Programs   []ProgramState   `json:"programs"`
	LastPoll   time.Time        `json:"last_poll"`
	LastError  string           `json:"last_error,omitempty"`
}

func (b *Bridge) State() State {
	state := State{
		Appliances: make([]ApplianceState, 0),
		Programs:   make([]ProgramState, 0),
	}

	for _, appliance := range b.voltalisClient.Appliances() {
		state.Appliances = append(state.Appliances, applianceState(appliance))
	}

	for _, program := range b.voltalisClient.Programs() {
		state.Programs = append(state.Programs, ProgramState{
			ProgramData: voltalis.ProgramData{ID: program.ID(), Name: program.Name(), Enabled: program.IsEnabled()},
			Type:        program.Type(),
		})
	}

	b.statusMutex.RLock()
	defer b.statusMutex.RUnlock()

	state.LastPoll = b.lastPoll
	if b.lastError != nil {
		state.LastError = b.lastError.Error()
	}

	return state
}

// Appliance returns the snapshot of one appliance.
func (b *Bridge) Appliance(id int) (ApplianceState, bool) {
	appliance, ok := b.voltalisClient.Appliance(id)
	if !ok {
		return ApplianceState{}, false
	}

	return applianceState(appliance), true
}

func applianceState(appliance *voltalis.Appliance) ApplianceState {
	return ApplianceState{
		ApplianceData:   appliance.Data(),
		Reachable:       appliance.IsReachable(),
		ManualSettingID: appliance.IDManualSetting(),
	}
}
