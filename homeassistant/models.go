package homeassistant

type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

type climateConfiguration struct {
	UniqueId                string   `json:"unique_id"`
	Name                    *string  `json:"name"`
	Device                  device   `json:"device"`
	AvailabilityTopic       string   `json:"availability_topic"`
	ModeStateTopic          string   `json:"mode_state_topic"`
	ModeCommandTopic        string   `json:"mode_command_topic"`
	Modes                   []string `json:"modes"`
	ActionTopic             string   `json:"action_topic"`
	PresetModeStateTopic    string   `json:"preset_mode_state_topic"`
	PresetModeCommandTopic  string   `json:"preset_mode_command_topic"`
	PresetModes             []string `json:"preset_modes"`
	TemperatureStateTopic   string   `json:"temperature_state_topic"`
	TemperatureCommandTopic string   `json:"temperature_command_topic"`
	TemperatureUnit         string   `json:"temperature_unit"`
	MinTemp                 float64  `json:"min_temp"`
	MaxTemp                 float64  `json:"max_temp"`
	TempStep                float64  `json:"temp_step"`
}

type waterHeaterConfiguration struct {
	UniqueId              string   `json:"unique_id"`
	Name                  *string  `json:"name"`
	Device                device   `json:"device"`
	AvailabilityTopic     string   `json:"availability_topic"`
	ModeStateTopic        string   `json:"mode_state_topic"`
	Modes                 []string `json:"modes"`
	TemperatureStateTopic string   `json:"temperature_state_topic"`
	TemperatureUnit       string   `json:"temperature_unit"`
}

type switchConfiguration struct {
	UniqueId          string  `json:"unique_id"`
	Name              *string `json:"name"`
	Device            device  `json:"device"`
	AvailabilityTopic string  `json:"availability_topic"`
	StateTopic        string  `json:"state_topic"`
	CommandTopic      string  `json:"command_topic"`
	Icon              string  `json:"icon"`
}
