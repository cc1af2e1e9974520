package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/victorjacobs/go-voltalis/bridge"
	"github.com/victorjacobs/go-voltalis/config"
	"github.com/victorjacobs/go-voltalis/metrics"
	"github.com/victorjacobs/go-voltalis/routes"
	"github.com/victorjacobs/go-voltalis/voltalis"
)

func main() {
	configFile := flag.String("config", "voltalis.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfiguration(*configFile)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := cfg.Log.Apply(); err != nil {
		log.Fatalf("Error configuring logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	voltalisClient := voltalis.NewClient(cfg.Voltalis.Username, cfg.Voltalis.Password,
		voltalis.WithBaseURL(cfg.Voltalis.BaseURL),
		voltalis.WithAutoLogin(true),
		voltalis.WithRateLimit(cfg.Voltalis.RateLimit, cfg.Voltalis.RateBurst),
		voltalis.WithObserver(m),
		voltalis.WithLogger(log.WithField("component", "voltalis")),
	)

	bridge := bridge.New(cfg, voltalisClient, m)
	if err := bridge.Setup(ctx); err != nil {
		log.Fatalf("Error setting up bridge: %v", err)
	}

	mqttOpts := cfg.Mqtt.ClientOptions()
	// Configure MQTT subscriptions in the ConnectHandler to make sure they are set up after reconnect
	mqttOpts.SetOnConnectHandler(func(client mqtt.Client) {
		bridge.SubscribeToCommands(client)
	})

	mqttClient := mqtt.NewClient(mqttOpts)
	if t := mqttClient.Connect(); t.Wait() && t.Error() != nil {
		log.Fatalf("MQTT connection error: %v", t.Error())
	}

	if err := bridge.RegisterEntities(mqttClient); err != nil {
		log.Fatalf("Error registering entities: %v", err)
	}

	go loopSafely(ctx, func() {
		// Failures are logged and published as unavailability by Poll.
		_ = bridge.Poll(ctx, mqttClient)

		select {
		case <-ctx.Done():
		case <-time.After(cfg.Poll.Interval):
		}
	})

	router := routes.New(bridge, m.Handler())
	go loopSafely(ctx, func() {
		if err := http.ListenAndServe(cfg.Http.Listen, router); err != nil {
			log.Errorf("HTTP server stopped: %v", err)
			time.Sleep(time.Second)
		}
	})

	<-ctx.Done()
	log.Info("Shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := voltalisClient.Close(closeCtx); err != nil {
		log.Warnf("Logout failed: %v", err)
	}

	mqttClient.Disconnect(250)
}
