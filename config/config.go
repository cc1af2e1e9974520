package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Voltalis Voltalis `mapstructure:"voltalis"`
	Mqtt     Mqtt     `mapstructure:"mqtt"`
	Poll     Poll     `mapstructure:"poll"`
	Http     Http     `mapstructure:"http"`
	Log      Log      `mapstructure:"log"`
}

type Voltalis struct {
	Username  string  `mapstructure:"username"`
	Password  string  `mapstructure:"password"`
	BaseURL   string  `mapstructure:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second
	RateBurst int     `mapstructure:"rate_burst"`
}

type Mqtt struct {
	IpAddress       string `mapstructure:"ip_address"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

type Poll struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Http struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfiguration reads the YAML file at filename. A .env file next to it is loaded
// into the environment first, so credentials can be kept out of the YAML.
func LoadConfiguration(filename string) (*Configuration, error) {
	envFile := filepath.Join(filepath.Dir(filename), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %v: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filename)
	v.SetEnvPrefix("VOLTALIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("voltalis.username", "VOLTALIS_USERNAME")
	_ = v.BindEnv("voltalis.password", "VOLTALIS_PASSWORD")
	_ = v.BindEnv("mqtt.username", "VOLTALIS_MQTT_USERNAME")
	_ = v.BindEnv("mqtt.password", "VOLTALIS_MQTT_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %v: %w", filename, err)
	}

	configuration := &Configuration{}
	if err := v.Unmarshal(configuration); err != nil {
		return nil, fmt.Errorf("decoding %v: %w", filename, err)
	}

	if configuration.Mqtt.ClientID == "" {
		configuration.Mqtt.ClientID = "voltalis-" + uuid.NewString()[:8]
	}

	if err := configuration.validate(); err != nil {
		return nil, err
	}

	return configuration, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("voltalis.username", "")
	v.SetDefault("voltalis.password", "")
	v.SetDefault("voltalis.base_url", "https://api.myvoltalis.com")
	v.SetDefault("voltalis.rate_limit", 5.0)
	v.SetDefault("voltalis.rate_burst", 10)

	v.SetDefault("mqtt.ip_address", "127.0.0.1")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.topic_prefix", "voltalis")
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")

	v.SetDefault("poll.interval", time.Minute)
	v.SetDefault("poll.timeout", 10*time.Second)

	v.SetDefault("http.listen", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Configuration) validate() error {
	if c.Voltalis.Username == "" || c.Voltalis.Password == "" {
		return errors.New("voltalis username and password are required")
	}

	if c.Voltalis.RateLimit <= 0 || c.Voltalis.RateBurst <= 0 {
		return fmt.Errorf("invalid rate limit %v (burst %v)", c.Voltalis.RateLimit, c.Voltalis.RateBurst)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("invalid poll interval %v", c.Poll.Interval)
	}

	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("invalid poll timeout %v", c.Poll.Timeout)
	}

	return nil
}

// Apply configures the standard logrus logger.
func (l Log) Apply() error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch strings.ToLower(l.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return nil
}

func (m *Mqtt) ClientOptions() *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%v:%v", m.IpAddress, m.Port)).
		SetClientID(m.ClientID).
		SetUsername(m.Username).
		SetPassword(m.Password).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
			log.Printf("MQTT reconnecting")
		})
}
