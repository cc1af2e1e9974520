package bridge

import (
	"strconv"

	"github.com/victorjacobs/go-voltalis/homeassistant"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

type applianceEntity struct {
	component string
	register  func(h *homeassistant.Client, d homeassistant.Device) error
	// states maps topic suffixes to the payloads describing the appliance.
	states func(appliance *voltalis.Appliance) map[string]string
}

var applianceEntities = map[string]applianceEntity{
	voltalis.ApplianceTypeHeater: {
		component: "climate",
		register:  (*homeassistant.Client).RegisterClimate,
		states: func(appliance *voltalis.Appliance) map[string]string {
			programming := appliance.Programming()

			return map[string]string{
				homeassistant.ModeState:        hvacMode(programming),
				homeassistant.Action:           hvacAction(programming),
				homeassistant.PresetState:      presetFor(programming.Mode()),
				homeassistant.TemperatureState: formatTemperature(programming.TemperatureTarget()),
			}
		},
	},
	voltalis.ApplianceTypeWaterHeater: {
		component: "water_heater",
		register:  (*homeassistant.Client).RegisterWaterHeater,
		states: func(appliance *voltalis.Appliance) map[string]string {
			programming := appliance.Programming()

			mode := homeassistant.WaterHeaterModeOff
			if programming.IsOn() {
				mode = homeassistant.WaterHeaterModeEco
			}

			return map[string]string{
				homeassistant.ModeState:        mode,
				homeassistant.TemperatureState: formatTemperature(programming.TemperatureTarget()),
			}
		},
	},
}

func formatTemperature(temperature float64) string {
	return strconv.FormatFloat(temperature, 'f', -1, 64)
}
