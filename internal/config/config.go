package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel   zapcore.Level
	Modbus     ModbusConfig  `mapstructure:"modbus"`
	ModelsFile string        `mapstructure:"models_file"`
	Poll       PollConfig    `mapstructure:"poll"`
	MQTT       MQTTConfig    `mapstructure:"mqtt"`
	Meters     []MeterConfig `mapstructure:"meters"`
	Port       uint          `mapstructure:"port"`
	HttpLog    bool          `mapstructure:"http_log"`
}

type ModbusConfig struct {
	// simonvetter or goburrow
	Driver string `mapstructure:"driver"`
}

type PollConfig struct {
	IntervalMillis       uint32 `mapstructure:"interval_millis"`
	Cron                 string `mapstructure:"cron"`
	CollectTimeoutMillis uint32 `mapstructure:"collect_timeout_millis"`
}

// CollectTimeout bounds one collect cycle, 5s when unset.
func (p PollConfig) CollectTimeout() time.Duration {
	if p.CollectTimeoutMillis == 0 {
		return 5 * time.Second
	}
	return time.Duration(p.CollectTimeoutMillis) * time.Millisecond
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type MeterConfig struct {
	Model            string          `mapstructure:"model"`
	CounterId        int             `mapstructure:"counter_id"`
	UnitId           uint8           `mapstructure:"unit_id"`
	CounterName      string          `mapstructure:"counter_name"`
	CompanyId        string          `mapstructure:"company_id"`
	FailureThreshold int             `mapstructure:"failure_threshold"`
	Preferred        string          `mapstructure:"preferred"`
	TCP              *MeterTCPConfig `mapstructure:"tcp"`
	RTU              *MeterRTUConfig `mapstructure:"rtu"`
}

type MeterTCPConfig struct {
	Host           string  `mapstructure:"host"`
	Port           uint    `mapstructure:"port"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

type MeterRTUConfig struct {
	Port           string  `mapstructure:"port"`
	BaudRate       uint    `mapstructure:"baud_rate"`
	DataBits       uint    `mapstructure:"data_bits"`
	Parity         string  `mapstructure:"parity"`
	StopBits       uint    `mapstructure:"stop_bits"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

func (m MeterConfig) Counter() energy_counters.CounterConfiguration {
	return energy_counters.CounterConfiguration{
		CounterId:   m.CounterId,
		UnitId:      m.UnitId,
		CounterName: m.CounterName,
		CompanyId:   m.CompanyId,
	}
}

func (m MeterConfig) Connection() energy_counters.ConnectionConfiguration {
	conn := energy_counters.ConnectionConfiguration{
		Preferred:        energy_counters.Protocol(strings.ToLower(m.Preferred)),
		FailureThreshold: m.FailureThreshold,
	}
	if m.TCP != nil {
		tcp := energy_counters.NewTCPConfiguration(m.TCP.Host)
		if m.TCP.Port > 0 {
			tcp.Port = m.TCP.Port
		}
		if m.TCP.TimeoutSeconds > 0 {
			tcp.TimeoutSeconds = m.TCP.TimeoutSeconds
		}
		conn.TCP = &tcp
	}
	if m.RTU != nil {
		rtu := energy_counters.RTUConfiguration{
			SerialPort:     m.RTU.Port,
			BaudRate:       m.RTU.BaudRate,
			DataBits:       m.RTU.DataBits,
			Parity:         strings.ToUpper(m.RTU.Parity),
			StopBits:       m.RTU.StopBits,
			TimeoutSeconds: m.RTU.TimeoutSeconds,
		}
		conn.RTU = &rtu
	}
	return conn
}

// Validate checks bounds and meter definitions. Models must be registered beforehand.
func (cfg *Config) Validate() error {
	if cfg.Poll.Cron != "" {
		if _, err := quartz.NewCronTrigger(cfg.Poll.Cron); err != nil {
			return fmt.Errorf("config param poll.cron: %w", err)
		}
	} else if cfg.Poll.IntervalMillis < 1000 {
		return errors.New("config param poll.interval_millis should be >= 1000")
	}
	switch cfg.Modbus.Driver {
	case "", "simonvetter", "goburrow":
	default:
		return fmt.Errorf("config param modbus.driver: unknown driver '%s'", cfg.Modbus.Driver)
	}
	if len(cfg.Meters) == 0 {
		return errors.New("at least one meter must be configured")
	}
	ids := make(map[int]bool)
	for i, m := range cfg.Meters {
		if ids[m.CounterId] {
			return fmt.Errorf("meters[%d]: duplicated counter_id %d", i, m.CounterId)
		}
		ids[m.CounterId] = true
		if _, err := energy_counters.LookupModel(m.Model); err != nil {
			return fmt.Errorf("meters[%d]: %w", i, err)
		}
		if err := m.Counter().Validate(); err != nil {
			return fmt.Errorf("meters[%d]: %w", i, err)
		}
		if err := m.Connection().Validate(); err != nil {
			return fmt.Errorf("meters[%d]: %w", i, err)
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
