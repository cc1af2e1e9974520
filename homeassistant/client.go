package homeassistant

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Climate modes and presets exposed to Home Assistant.
const (
	ModeAuto = "auto"
	ModeHeat = "heat"
	ModeOff  = "off"

	ActionHeating = "heating"
	ActionOff     = "off"

	PresetEco     = "eco"
	PresetComfort = "comfort"
	PresetHome    = "home"
	PresetAway    = "away"

	WaterHeaterModeEco = "eco"
	WaterHeaterModeOff = "off"

	StateOn  = "ON"
	StateOff = "OFF"

	Online  = "online"
	Offline = "offline"
)

const (
	MinTemp = 7
	MaxTemp = 24
)

// Topic suffixes for appliance and program entities.
const (
	Availability       = "availability"
	ModeState          = "mode/state"
	ModeCommand        = "mode/cmd"
	Action             = "action"
	PresetState        = "preset/state"
	PresetCommand      = "preset/cmd"
	TemperatureState   = "temperature/state"
	TemperatureCommand = "temperature/cmd"
	State              = "state"
	Command            = "cmd"
)

var (
	Modes   = []string{ModeAuto, ModeHeat, ModeOff}
	Presets = []string{PresetEco, PresetComfort, PresetHome, PresetAway}
)

// Device describes the Home Assistant device an entity belongs to.
type Device struct {
	ID           int
	Name         string
	Manufacturer string
	Model        string
}

type Client struct {
	mqtt            mqtt.Client
	discoveryPrefix string
	topicPrefix     string
}

func NewClient(mqtt mqtt.Client, discoveryPrefix string, topicPrefix string) *Client {
	return &Client{
		mqtt:            mqtt,
		discoveryPrefix: discoveryPrefix,
		topicPrefix:     topicPrefix,
	}
}

func (h *Client) ApplianceTopic(id int, suffix string) string {
	return fmt.Sprintf("%v/appliance/%v/%v", h.topicPrefix, id, suffix)
}

func (h *Client) ProgramTopic(id int, suffix string) string {
	return fmt.Sprintf("%v/program/%v/%v", h.topicPrefix, id, suffix)
}

func (h *Client) RegisterClimate(d Device) error {
	return h.publishConfig("climate", uniqueId("appliance", d.ID), climateConfiguration{
		UniqueId:                uniqueId("appliance", d.ID),
		Device:                  deviceFor("appliance", d),
		AvailabilityTopic:       h.ApplianceTopic(d.ID, Availability),
		ModeStateTopic:          h.ApplianceTopic(d.ID, ModeState),
		ModeCommandTopic:        h.ApplianceTopic(d.ID, ModeCommand),
		Modes:                   Modes,
		ActionTopic:             h.ApplianceTopic(d.ID, Action),
		PresetModeStateTopic:    h.ApplianceTopic(d.ID, PresetState),
		PresetModeCommandTopic:  h.ApplianceTopic(d.ID, PresetCommand),
		PresetModes:             Presets,
		TemperatureStateTopic:   h.ApplianceTopic(d.ID, TemperatureState),
		TemperatureCommandTopic: h.ApplianceTopic(d.ID, TemperatureCommand),
		TemperatureUnit:         "C",
		MinTemp:                 MinTemp,
		MaxTemp:                 MaxTemp,
		TempStep:                0.5,
	})
}

// RegisterWaterHeater registers a read-only water heater.
func (h *Client) RegisterWaterHeater(d Device) error {
	return h.publishConfig("water_heater", uniqueId("appliance", d.ID), waterHeaterConfiguration{
		UniqueId:              uniqueId("appliance", d.ID),
		Device:                deviceFor("appliance", d),
		AvailabilityTopic:     h.ApplianceTopic(d.ID, Availability),
		ModeStateTopic:        h.ApplianceTopic(d.ID, ModeState),
		Modes:                 []string{WaterHeaterModeOff, WaterHeaterModeEco},
		TemperatureStateTopic: h.ApplianceTopic(d.ID, TemperatureState),
		TemperatureUnit:       "C",
	})
}

func (h *Client) RegisterSwitch(d Device) error {
	return h.publishConfig("switch", uniqueId("program", d.ID), switchConfiguration{
		UniqueId:          uniqueId("program", d.ID),
		Device:            deviceFor("program", d),
		AvailabilityTopic: h.ProgramTopic(d.ID, Availability),
		StateTopic:        h.ProgramTopic(d.ID, State),
		CommandTopic:      h.ProgramTopic(d.ID, Command),
		Icon:              "mdi:toggle-switch",
	})
}

// Publish sends a retained state message.
func (h *Client) Publish(topic string, payload string) error {
	if t := h.mqtt.Publish(topic, 0, true, payload); t.Wait() && t.Error() != nil {
		return t.Error()
	}

	return nil
}

func (h *Client) publishConfig(component string, objectId string, configuration any) error {
	payload, err := json.Marshal(configuration)
	if err != nil {
		return err
	}

	configTopic := fmt.Sprintf("%v/%v/%v/config", h.discoveryPrefix, component, objectId)

	if t := h.mqtt.Publish(configTopic, 0, true, payload); t.Wait() && t.Error() != nil {
		return t.Error()
	}

	return nil
}

// uniqueId keeps appliance and program ids apart, the API numbers them independently.
func uniqueId(kind string, id int) string {
	return fmt.Sprintf("voltalis_%v_%v", kind, id)
}

func deviceFor(kind string, d Device) device {
	return device{
		Identifiers:  []string{uniqueId(kind, d.ID)},
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
	}
}
