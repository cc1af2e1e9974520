package voltalis

import "context"

// Appliance is a read-through view of one appliance held by a Client.
type Appliance struct {
	client *Client
	id     int
}

func (a *Appliance) state() applianceState {
	a.client.mutex.RLock()
	defer a.client.mutex.RUnlock()

	if state, ok := a.client.appliances[a.id]; ok {
		return *state
	}

	return applianceState{}
}

// Update re-reads the appliance from the API.
func (a *Appliance) Update(ctx context.Context) error {
	return a.client.RefreshAppliance(ctx, a.id)
}

func (a *Appliance) ID() int {
	return a.id
}

func (a *Appliance) Name() string {
	return a.state().data.Name
}

func (a *Appliance) ApplianceType() string {
	return a.state().data.ApplianceType
}

func (a *Appliance) ModulatorType() string {
	return a.state().data.ModulatorType
}

func (a *Appliance) AvailableModes() []string {
	return append([]string(nil), a.state().data.AvailableModes...)
}

func (a *Appliance) VoltalisVersion() string {
	return a.state().data.VoltalisVersion
}

func (a *Appliance) HeatingLevel() int {
	return a.state().data.HeatingLevel
}

// IsReachable reports the last autodiag status. Appliances are reachable until a
// diagnostic says otherwise.
func (a *Appliance) IsReachable() bool {
	return a.state().reachable
}

// IDManualSetting is the id of the appliance's manual setting, merged from the manual
// settings listing, 0 when none is known.
func (a *Appliance) IDManualSetting() int {
	return a.state().idManualSetting
}

func (a *Appliance) Programming() *Programming {
	return &Programming{appliance: a}
}

// Data returns a copy of the current appliance record.
func (a *Appliance) Data() ApplianceData {
	data := a.state().data
	data.AvailableModes = append([]string(nil), data.AvailableModes...)

	return data
}

// Programming is a read-through view of an appliance's programming.
type Programming struct {
	appliance *Appliance
}

func (p *Programming) data() ProgrammingData {
	return p.appliance.state().data.Programming
}

func (p *Programming) ProgType() string {
	return p.data().ProgType
}

func (p *Programming) ProgName() string {
	return p.data().ProgName
}

// IDManualSetting is the raw programming field, often 0. Use Appliance.IDManualSetting
// for the id to PUT manual settings to.
func (p *Programming) IDManualSetting() int {
	return p.data().IDManualSetting
}

func (p *Programming) IsOn() bool {
	return p.data().IsOn
}

func (p *Programming) UntilFurtherNotice() bool {
	return p.data().UntilFurtherNotice
}

func (p *Programming) Mode() string {
	return p.data().Mode
}

func (p *Programming) IDPlanning() int {
	return p.data().IDPlanning
}

// EndDate returns the end of the current setting, nil when it has none.
func (p *Programming) EndDate() *string {
	return p.data().EndDate
}

func (p *Programming) TemperatureTarget() float64 {
	return p.data().TemperatureTarget
}

func (p *Programming) DefaultTemperature() float64 {
	return p.data().DefaultTemperature
}

// NewManualSetting builds a full manual setting body from the appliance's current state.
// Callers change the fields they want before passing it to SetManualSetting.
func NewManualSetting(a *Appliance) ManualSetting {
	state := a.state()

	return ManualSetting{
		ID:                 state.idManualSetting,
		Enabled:            true,
		IDAppliance:        a.id,
		ApplianceName:      state.data.Name,
		ApplianceType:      state.data.ApplianceType,
		UntilFurtherNotice: state.data.Programming.UntilFurtherNotice,
		Mode:               state.data.Programming.Mode,
		HeatingLevel:       state.data.HeatingLevel,
		EndDate:            state.data.Programming.EndDate,
		TemperatureTarget:  state.data.Programming.TemperatureTarget,
		IsOn:               state.data.Programming.IsOn,
	}
}
