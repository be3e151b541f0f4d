package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeBot   Mode = "bot"
	ModeHost  Mode = "host"
	ModeJoin  Mode = "join"
)

type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWebsocket Transport = "websocket"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Mode     Mode    `yaml:"mode" env:"MODE" env-default:"local"`
	Bot      Bot     `yaml:"bot"`
	Network  Network `yaml:"network"`
	Redis    Redis   `yaml:"redis"`
}

type Bot struct {
	MaxDepth int    `yaml:"max-depth" env:"BOT_MAX_DEPTH" env-default:"9"`
	Mark     string `yaml:"mark" env:"BOT_MARK" env-default:"O"`
}

type Network struct {
	Transport        Transport     `yaml:"transport" env:"NETWORK_TRANSPORT" env-default:"tcp"`
	ListenPort       string        `yaml:"listen-port" env:"NETWORK_LISTEN_PORT" env-default:"1234"`
	PeerAddr         string        `yaml:"peer-addr" env:"NETWORK_PEER_ADDR" env-default:"127.0.0.1:1234"`
	ConnectTimeout   time.Duration `yaml:"connect-timeout" env:"NETWORK_CONNECT_TIMEOUT" env-default:"1s"`
	HandshakeTimeout time.Duration `yaml:"handshake-timeout" env:"NETWORK_HANDSHAKE_TIMEOUT" env-default:"5s"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"1h"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// Load - reads path, applies env overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Mode {
	case ModeLocal, ModeBot, ModeHost, ModeJoin:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, that.Mode)
	}

	switch that.Network.Transport {
	case TransportTCP, TransportWebsocket:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, that.Network.Transport)
	}

	if that.Bot.Mark != "X" && that.Bot.Mark != "O" {
		return fmt.Errorf("%w: bot mark must be X or O, got %q", ErrInvalidConfig, that.Bot.Mark)
	}

	if that.Mode == ModeJoin && that.Network.PeerAddr == "" {
		return fmt.Errorf("%w: join mode needs network.peer-addr", ErrInvalidConfig)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
