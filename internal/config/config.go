package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"robot_go/internal/models"
)

// DefaultConfigFile é o arquivo lido quando nenhum caminho é informado
const DefaultConfigFile = "config.json"

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig        `json:"server"`
	Robot     RobotConfig         `json:"robot"`
	Envelope  models.WorkEnvelope `json:"envelope"`
	Redis     RedisConfig         `json:"redis"`
	PLC       PLCConfig           `json:"plc"`
	Discovery DiscoveryConfig     `json:"discovery"`
	Log       LogConfig           `json:"log"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	StaticDir       string        `json:"staticDir"`
}

// RobotConfig contém as configurações da conexão com o braço robótico.
// Tempos são expressos em milissegundos, como no protocolo de configuração do equipamento.
type RobotConfig struct {
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	ConnectTimeoutMs     int    `json:"connectTimeoutMs"`
	CommandTimeoutMs     int    `json:"commandTimeoutMs"`
	MaxReconnectAttempts int    `json:"maxReconnectAttempts"` // -1 = ilimitado
	ReconnectDelayMs     int    `json:"reconnectDelayMs"`
	MaxReconnectDelayMs  int    `json:"maxReconnectDelayMs"`
	PollIntervalMs       int    `json:"pollIntervalMs"` // 0 desabilita o poller de telemetria
	Debug                bool   `json:"debug"`
}

// ConnectTimeout retorna o timeout de conexão como time.Duration
func (c RobotConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// CommandTimeout retorna o timeout de comando como time.Duration
func (c RobotConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

// ReconnectDelay retorna o atraso base da reconexão
func (c RobotConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// MaxReconnectDelay retorna o atraso máximo da reconexão
func (c RobotConfig) MaxReconnectDelay() time.Duration {
	return time.Duration(c.MaxReconnectDelayMs) * time.Millisecond
}

// PollInterval retorna o intervalo do poller de telemetria
func (c RobotConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Address retorna host:porta
func (c RobotConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	Prefix   string        `json:"prefix"`
	Enabled  bool          `json:"enabled"`
	TTL      time.Duration `json:"ttl"`
}

// PLCConfig contém configurações para espelhar pose e status em um PLC S7
type PLCConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Rack         int           `json:"rack"`
	Slot         int           `json:"slot"`
	DBNumber     int           `json:"dbNumber"`
	UpdateRate   time.Duration `json:"updateRate"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// DiscoveryConfig controla o anúncio mDNS do painel
type DiscoveryConfig struct {
	Enabled      bool   `json:"enabled"`
	InstanceName string `json:"instanceName"`
}

// LogConfig controla o nível e o destino dos logs
type LogConfig struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Load carrega a configuração do arquivo ou usa valores padrão.
// Um arquivo .env presente no diretório atual é carregado antes das sobrescritas por ambiente.
func Load(path string) (*Config, error) {
	config := getDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	// Verificar se existe um arquivo de configuração
	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("erro ao decodificar %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("arquivo de configuração %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("erro ao carregar .env: %w", err)
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate verifica a consistência da configuração
func (c *Config) Validate() error {
	r := c.Robot
	switch {
	case r.Host == "":
		return errors.New("robot.host não pode ser vazio")
	case r.Port <= 0 || r.Port > 65535:
		return fmt.Errorf("robot.port inválida: %d", r.Port)
	case r.ConnectTimeoutMs <= 0:
		return fmt.Errorf("robot.connectTimeoutMs deve ser positivo: %d", r.ConnectTimeoutMs)
	case r.CommandTimeoutMs <= 0:
		return fmt.Errorf("robot.commandTimeoutMs deve ser positivo: %d", r.CommandTimeoutMs)
	case r.MaxReconnectAttempts < -1:
		return fmt.Errorf("robot.maxReconnectAttempts inválido: %d", r.MaxReconnectAttempts)
	case r.ReconnectDelayMs <= 0:
		return fmt.Errorf("robot.reconnectDelayMs deve ser positivo: %d", r.ReconnectDelayMs)
	case r.MaxReconnectDelayMs < r.ReconnectDelayMs:
		return fmt.Errorf("robot.maxReconnectDelayMs (%d) menor que reconnectDelayMs (%d)",
			r.MaxReconnectDelayMs, r.ReconnectDelayMs)
	case r.PollIntervalMs < 0:
		return fmt.Errorf("robot.pollIntervalMs inválido: %d", r.PollIntervalMs)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port inválida: %d", c.Server.Port)
	}

	return c.Envelope.Validate()
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(config *Config) error {
	overrides := []struct {
		name   string
		target interface{}
	}{
		{"ROBOT_HOST", &config.Robot.Host},
		{"ROBOT_PORT", &config.Robot.Port},
		{"ROBOT_CONNECT_TIMEOUT_MS", &config.Robot.ConnectTimeoutMs},
		{"ROBOT_COMMAND_TIMEOUT_MS", &config.Robot.CommandTimeoutMs},
		{"ROBOT_MAX_RECONNECT_ATTEMPTS", &config.Robot.MaxReconnectAttempts},
		{"ROBOT_RECONNECT_DELAY_MS", &config.Robot.ReconnectDelayMs},
		{"ROBOT_MAX_RECONNECT_DELAY_MS", &config.Robot.MaxReconnectDelayMs},
		{"ROBOT_POLL_INTERVAL_MS", &config.Robot.PollIntervalMs},
		{"SERVER_PORT", &config.Server.Port},
		{"REDIS_HOST", &config.Redis.Host},
		{"REDIS_PORT", &config.Redis.Port},
		{"REDIS_PASSWORD", &config.Redis.Password},
		{"REDIS_ENABLED", &config.Redis.Enabled},
		{"PLC_ENABLED", &config.PLC.Enabled},
		{"PLC_HOST", &config.PLC.Host},
		{"DISCOVERY_ENABLED", &config.Discovery.Enabled},
		{"LOG_LEVEL", &config.Log.Level},
		{"LOG_DIR", &config.Log.Dir},
	}

	for _, o := range overrides {
		value, ok := os.LookupEnv(o.name)
		if !ok || value == "" {
			continue
		}

		switch target := o.target.(type) {
		case *string:
			*target = value
		case *int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("variável %s inválida: %w", o.name, err)
			}
			*target = n
		case *bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("variável %s inválida: %w", o.name, err)
			}
			*target = b
		}
	}

	return nil
}
