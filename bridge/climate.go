package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/victorjacobs/go-voltalis/homeassistant"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

var presetModes = map[string]string{
	homeassistant.PresetEco:     voltalis.ModeEco,
	homeassistant.PresetComfort: voltalis.ModeComfort,
	homeassistant.PresetHome:    voltalis.ModeTemperature,
	homeassistant.PresetAway:    voltalis.ModeFrostFree,
}

// settingBuilder turns a command payload into the manual setting to PUT.
type settingBuilder func(appliance *voltalis.Appliance, payload string) (voltalis.ManualSetting, error)

func hvacMode(programming *voltalis.Programming) string {
	switch programming.ProgType() {
	case voltalis.ProgTypeManual:
		if !programming.IsOn() {
			return homeassistant.ModeOff
		}
		return homeassistant.ModeHeat
	case voltalis.ProgTypeUser:
		return homeassistant.ModeAuto
	default:
		return homeassistant.ModeHeat
	}
}

func hvacAction(programming *voltalis.Programming) string {
	if programming.IsOn() {
		return homeassistant.ActionHeating
	}

	return homeassistant.ActionOff
}

// presetFor returns the preset matching a Voltalis mode, "none" when there is none.
func presetFor(mode string) string {
	for preset, voltalisMode := range presetModes {
		if voltalisMode == mode {
			return preset
		}
	}

	return "none"
}

func setMode(appliance *voltalis.Appliance, payload string) (voltalis.ManualSetting, error) {
	setting := voltalis.NewManualSetting(appliance)

	switch payload {
	case homeassistant.ModeHeat:
		setting.Enabled = true
		setting.Mode = voltalis.ModeTemperature
		setting.UntilFurtherNotice = true
		setting.IsOn = true
	case homeassistant.ModeOff:
		setting.Enabled = true
		setting.IsOn = false
		setting.UntilFurtherNotice = true
	case homeassistant.ModeAuto:
		setting.Enabled = false
	default:
		return setting, fmt.Errorf("unexpected hvac mode %q", payload)
	}

	return setting, nil
}

func setPreset(appliance *voltalis.Appliance, payload string) (voltalis.ManualSetting, error) {
	mode, ok := presetModes[payload]
	if !ok {
		return voltalis.ManualSetting{}, fmt.Errorf("unexpected preset %q", payload)
	}

	setting := voltalis.NewManualSetting(appliance)
	setting.Enabled = true
	setting.UntilFurtherNotice = true
	setting.Mode = mode
	setting.EndDate = nil
	setting.IsOn = true

	return setting, nil
}

func setTemperature(appliance *voltalis.Appliance, payload string) (voltalis.ManualSetting, error) {
	temperature, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return voltalis.ManualSetting{}, fmt.Errorf("invalid temperature %q: %w", payload, err)
	}

	if temperature < homeassistant.MinTemp || temperature > homeassistant.MaxTemp {
		return voltalis.ManualSetting{}, fmt.Errorf("temperature %v outside %v-%v", temperature, homeassistant.MinTemp, homeassistant.MaxTemp)
	}

	setting := voltalis.NewManualSetting(appliance)
	setting.Enabled = true
	setting.UntilFurtherNotice = true
	setting.Mode = voltalis.ModeTemperature
	setting.EndDate = nil
	setting.TemperatureTarget = temperature
	setting.IsOn = true

	return setting, nil
}

func capitalize(name string) string {
	if name == "" {
		return name
	}

	runes := []rune(strings.ToLower(name))
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}
