package voltalis

import "time"

const DefaultBaseURL = "https://api.myvoltalis.com"

const (
	loginPath        = "/auth/login"
	logoutPath       = "/auth/logout"
	accountMePath    = "/api/account/me"
	appliancesPath   = "/api/site/__site__/managed-appliance"
	manualSetPath    = "/api/site/__site__/manualsetting"
	userProgramsPath = "/api/site/__site__/programming/program"
	userProgramPath  = "/api/site/__site__/programming/program/__program__"
	autodiagPath     = "/api/site/__site__/autodiag"

	// Default programs are the quick settings, not /programming/program/{id}/enable.
	quickSetsPath  = "/api/site/__site__/quicksettings"
	quickSetEnable = "/api/site/__site__/quicksettings/__program__/enable"
)

const (
	sitePlaceholder    = "__site__"
	programPlaceholder = "__program__"
)

// Cache keys
const (
	AuthToken     = "auth_token"
	DefaultSiteID = "default_site_id"
)

const requestTimeout = 30 * time.Second

// Appliance types as reported by the API.
const (
	ApplianceTypeHeater      = "HEATER"
	ApplianceTypeWaterHeater = "WATER_HEATER"
)

// Programming types.
const (
	ProgTypeManual = "MANUAL"
	ProgTypeUser   = "USER"
)

// Heating modes accepted by manual settings.
const (
	ModeEco         = "ECO"
	ModeComfort     = "CONFORT"
	ModeTemperature = "TEMPERATURE"
	ModeFrostFree   = "HORS_GEL"
)

const diagnosticOK = "OK"
