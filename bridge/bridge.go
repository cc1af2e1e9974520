package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/victorjacobs/go-voltalis/config"
	"github.com/victorjacobs/go-voltalis/homeassistant"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

const commandTimeout = 30 * time.Second

// Poll results reported to the PollObserver.
const (
	PollSuccess      = "success"
	PollFailed       = "failed"
	PollUnauthorized = "unauthorized"
)

type PollObserver interface {
	ObservePoll(result string)
}

type Bridge struct {
	cfg            *config.Configuration
	voltalisClient *voltalis.Client
	observer       PollObserver

	// Last payload per state topic, so unchanged states are not republished.
	publishMutex  sync.Mutex
	lastPublished map[string]string

	statusMutex sync.RWMutex
	lastPoll    time.Time
	lastError   error
}

func New(cfg *config.Configuration, voltalisClient *voltalis.Client, observer PollObserver) *Bridge {
	return &Bridge{
		cfg:            cfg,
		voltalisClient: voltalisClient,
		observer:       observer,
		lastPublished:  make(map[string]string),
	}
}

// Setup initializes the Voltalis client and logs what was found.
func (b *Bridge) Setup(ctx context.Context) error {
	log.Printf("Connecting to Voltalis as %v", b.cfg.Voltalis.Username)

	if err := b.voltalisClient.Initialize(ctx); err != nil {
		return err
	}

	for _, appliance := range b.voltalisClient.Appliances() {
		log.Printf("Found appliance %v (%v, %v)", appliance.Name(), appliance.ID(), appliance.ApplianceType())
	}

	for _, program := range b.voltalisClient.Programs() {
		log.Printf("Found program %v (%v, %v)", program.Name(), program.ID(), program.Type())
	}

	return nil
}

func (b *Bridge) homeAssistant(mqttClient mqtt.Client) *homeassistant.Client {
	return homeassistant.NewClient(mqttClient, b.cfg.Mqtt.DiscoveryPrefix, b.cfg.Mqtt.TopicPrefix)
}

// RegisterEntities publishes the discovery configuration of every appliance and program.
func (b *Bridge) RegisterEntities(mqttClient mqtt.Client) error {
	homeAssistantClient := b.homeAssistant(mqttClient)

	for _, appliance := range b.voltalisClient.Appliances() {
		entity, ok := applianceEntities[appliance.ApplianceType()]
		if !ok {
			log.Printf("Skipping appliance %v with unsupported type %v", appliance.Name(), appliance.ApplianceType())
			continue
		}

		if err := entity.register(homeAssistantClient, deviceFor(appliance)); err != nil {
			return fmt.Errorf("registering %v %v: %w", entity.component, appliance.Name(), err)
		}
		log.Printf("Registered %v %v", entity.component, appliance.Name())
	}

	for _, program := range b.voltalisClient.Programs() {
		if err := homeAssistantClient.RegisterSwitch(homeassistant.Device{ID: program.ID(), Name: program.Name()}); err != nil {
			return fmt.Errorf("registering switch %v: %w", program.Name(), err)
		}
		log.Printf("Registered switch %v", program.Name())
	}

	return nil
}

// SubscribeToCommands subscribes to the command topics of every entity. Call it from the
// MQTT on-connect handler so subscriptions survive reconnects.
func (b *Bridge) SubscribeToCommands(mqttClient mqtt.Client) {
	homeAssistantClient := b.homeAssistant(mqttClient)

	for _, appliance := range b.voltalisClient.Appliances() {
		if appliance.ApplianceType() != voltalis.ApplianceTypeHeater {
			continue
		}

		b.subscribe(mqttClient, homeAssistantClient.ApplianceTopic(appliance.ID(), homeassistant.ModeCommand), b.applianceCommand(appliance, setMode))
		b.subscribe(mqttClient, homeAssistantClient.ApplianceTopic(appliance.ID(), homeassistant.PresetCommand), b.applianceCommand(appliance, setPreset))
		b.subscribe(mqttClient, homeAssistantClient.ApplianceTopic(appliance.ID(), homeassistant.TemperatureCommand), b.applianceCommand(appliance, setTemperature))
	}

	for _, program := range b.voltalisClient.Programs() {
		b.subscribe(mqttClient, homeAssistantClient.ProgramTopic(program.ID(), homeassistant.Command), b.programCommand(program))
	}
}

type commandHandler func(mqttClient mqtt.Client, payload string) error

func (b *Bridge) subscribe(mqttClient mqtt.Client, topic string, handler commandHandler) {
	if t := mqttClient.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
		if err := handler(client, string(msg.Payload())); err != nil {
			log.Printf("Handling %v failed: %v", msg.Topic(), err)
		}
	}); t.Wait() && t.Error() != nil {
		log.Printf("MQTT receive error: %v", t.Error())
	}
}

func (b *Bridge) applianceCommand(appliance *voltalis.Appliance, build settingBuilder) commandHandler {
	return func(mqttClient mqtt.Client, payload string) error {
		if appliance.IDManualSetting() == 0 {
			return fmt.Errorf("no manual setting known for appliance %v", appliance.Name())
		}

		setting, err := build(appliance, payload)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := b.voltalisClient.SetManualSetting(ctx, appliance.IDManualSetting(), setting); err != nil {
			return err
		}

		if err := appliance.Update(ctx); err != nil {
			return err
		}

		return b.publishAppliance(b.homeAssistant(mqttClient), appliance)
	}
}

func (b *Bridge) programCommand(program *voltalis.Program) commandHandler {
	return func(mqttClient mqtt.Client, payload string) error {
		var enabled bool
		switch payload {
		case homeassistant.StateOn:
			enabled = true
		case homeassistant.StateOff:
			enabled = false
		default:
			return fmt.Errorf("unexpected switch payload %q", payload)
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := program.SetEnabled(ctx, enabled); err != nil {
			return err
		}

		if err := program.Update(ctx); err != nil {
			return err
		}

		return b.publishProgram(b.homeAssistant(mqttClient), program)
	}
}

// Poll refreshes every appliance and program and publishes their states. Appliances and
// diagnostics share one timeout, programs get their own.
func (b *Bridge) Poll(ctx context.Context, mqttClient mqtt.Client) error {
	homeAssistantClient := b.homeAssistant(mqttClient)

	err := b.refresh(ctx)
	b.recordPoll(err)

	if err != nil {
		switch {
		case errors.Is(err, voltalis.ErrAuthentication):
			b.observer.ObservePoll(PollUnauthorized)
			log.Errorf("Voltalis rejected the credentials, reauthorize: %v", err)
			// The next cycle logs in again.
			b.voltalisClient.Cache().Set(voltalis.AuthToken, "")
		default:
			b.observer.ObservePoll(PollFailed)
			log.Warnf("Voltalis update failed: %v", err)
		}

		b.publishUnavailable(homeAssistantClient)

		return err
	}

	b.observer.ObservePoll(PollSuccess)

	for _, appliance := range b.voltalisClient.Appliances() {
		if err := b.publishAppliance(homeAssistantClient, appliance); err != nil {
			log.Printf("MQTT publishing failed: %v", err)
		}
	}

	for _, program := range b.voltalisClient.Programs() {
		if err := b.publishProgram(homeAssistantClient, program); err != nil {
			log.Printf("MQTT publishing failed: %v", err)
		}
	}

	return nil
}

func (b *Bridge) refresh(ctx context.Context) error {
	applianceCtx, cancel := context.WithTimeout(ctx, b.cfg.Poll.Timeout)
	defer cancel()

	for _, appliance := range b.voltalisClient.Appliances() {
		if err := appliance.Update(applianceCtx); err != nil {
			return err
		}
	}

	if err := b.voltalisClient.RefreshDiagnostics(applianceCtx); err != nil {
		return err
	}

	programCtx, cancel := context.WithTimeout(ctx, b.cfg.Poll.Timeout)
	defer cancel()

	// Quick settings are listed as a whole, refresh them once.
	refreshedDefaults := false
	for _, program := range b.voltalisClient.Programs() {
		if program.Type() == voltalis.ProgramTypeDefault {
			if refreshedDefaults {
				continue
			}
			refreshedDefaults = true
		}

		if err := program.Update(programCtx); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) publishAppliance(homeAssistantClient *homeassistant.Client, appliance *voltalis.Appliance) error {
	entity, ok := applianceEntities[appliance.ApplianceType()]
	if !ok {
		return nil
	}

	availability := homeassistant.Offline
	if appliance.IsReachable() {
		availability = homeassistant.Online
	}

	if err := b.publish(homeAssistantClient, homeAssistantClient.ApplianceTopic(appliance.ID(), homeassistant.Availability), availability); err != nil {
		return err
	}

	for suffix, payload := range entity.states(appliance) {
		if err := b.publish(homeAssistantClient, homeAssistantClient.ApplianceTopic(appliance.ID(), suffix), payload); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bridge) publishProgram(homeAssistantClient *homeassistant.Client, program *voltalis.Program) error {
	state := homeassistant.StateOff
	if program.IsEnabled() {
		state = homeassistant.StateOn
	}

	if err := b.publish(homeAssistantClient, homeAssistantClient.ProgramTopic(program.ID(), homeassistant.Availability), homeassistant.Online); err != nil {
		return err
	}

	return b.publish(homeAssistantClient, homeAssistantClient.ProgramTopic(program.ID(), homeassistant.State), state)
}

func (b *Bridge) publishUnavailable(homeAssistantClient *homeassistant.Client) {
	for _, appliance := range b.voltalisClient.Appliances() {
		if _, ok := applianceEntities[appliance.ApplianceType()]; !ok {
			continue
		}

		if err := b.publish(homeAssistantClient, homeAssistantClient.ApplianceTopic(appliance.ID(), homeassistant.Availability), homeassistant.Offline); err != nil {
			log.Printf("MQTT publishing failed: %v", err)
		}
	}

	for _, program := range b.voltalisClient.Programs() {
		if err := b.publish(homeAssistantClient, homeAssistantClient.ProgramTopic(program.ID(), homeassistant.Availability), homeassistant.Offline); err != nil {
			log.Printf("MQTT publishing failed: %v", err)
		}
	}
}

// publish sends payload unless it is what was last sent on topic.
func (b *Bridge) publish(homeAssistantClient *homeassistant.Client, topic string, payload string) error {
	b.publishMutex.Lock()
	defer b.publishMutex.Unlock()

	if last, ok := b.lastPublished[topic]; ok && last == payload {
		return nil
	}

	if err := homeAssistantClient.Publish(topic, payload); err != nil {
		return err
	}

	b.lastPublished[topic] = payload

	return nil
}

func (b *Bridge) recordPoll(err error) {
	b.statusMutex.Lock()
	defer b.statusMutex.Unlock()

	b.lastPoll = time.Now()
	b.lastError = err
}

func deviceFor(appliance *voltalis.Appliance) homeassistant.Device {
	return homeassistant.Device{
		ID:           appliance.ID(),
		Name:         capitalize(appliance.Name()),
		Manufacturer: appliance.ModulatorType(),
		Model:        appliance.ApplianceType(),
	}
}
