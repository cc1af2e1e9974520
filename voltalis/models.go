package voltalis

// ApplianceData is the appliance record returned by the managed-appliance endpoints.
type ApplianceData struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	ApplianceType   string          `json:"applianceType"`
	ModulatorType   string          `json:"modulatorType"`
	AvailableModes  []string        `json:"availableModes"`
	VoltalisVersion string          `json:"voltalisVersion"`
	HeatingLevel    int             `json:"heatingLevel"`
	Programming     ProgrammingData `json:"programming"`
}

type ProgrammingData struct {
	ProgType           string  `json:"progType"`
	ProgName           string  `json:"progName"`
	IDManualSetting    int     `json:"idManualSetting"`
	IsOn               bool    `json:"isOn"`
	UntilFurtherNotice bool    `json:"untilFurtherNotice"`
	Mode               string  `json:"mode"`
	IDPlanning         int     `json:"idPlanning"`
	EndDate            *string `json:"endDate"`
	TemperatureTarget  float64 `json:"temperatureTarget"`
	DefaultTemperature float64 `json:"defaultTemperature"`
}

// ProgramData is a user program or a quick setting.
type ProgramData struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ManualSetting is the full body of a manual setting. PUTs replace the whole setting.
type ManualSetting struct {
	ID                 int     `json:"id"`
	Enabled            bool    `json:"enabled"`
	IDAppliance        int     `json:"idAppliance"`
	ApplianceName      string  `json:"applianceName"`
	ApplianceType      string  `json:"applianceType"`
	UntilFurtherNotice bool    `json:"untilFurtherNotice"`
	Mode               string  `json:"mode"`
	HeatingLevel       int     `json:"heatingLevel"`
	EndDate            *string `json:"endDate"`
	TemperatureTarget  float64 `json:"temperatureTarget"`
	IsOn               bool    `json:"isOn"`
}

// Diagnostic is one entry of the autodiag listing.
type Diagnostic struct {
	IDAppliance int    `json:"idAppliance"`
	Name        string `json:"name"`
	Status      string `json:"status"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type accountResponse struct {
	DefaultSite struct {
		ID int `json:"id"`
	} `json:"defaultSite"`
}

type userProgramState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type defaultProgramState struct {
	Enabled bool `json:"enabled"`
}
