package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level acommsd configuration file: a driver stanza and
// the set of queues the queue manager should register at startup.
// Grounded on internal/config/config.go's GhostConfig{Name, Addr,
// CorsOrigins, Seeds []SeedConfig} shape, generalized from one embedded
// service address to a driver plus a queue list.
type Config struct {
	Driver DriverConfig  `toml:"driver"`
	Queues []QueueConfig `toml:"queue"`
}

// DriverConfig mirrors spec.md §6's driver stanza field-for-field:
// modem_id, max_frame_size, target_bit_rate_bps, handshake_hangup_seconds,
// hangup_seconds_after_empty, rudics_server_port, mo_sbd_server_port,
// mt_sbd_server_address, mt_sbd_server_port, modem_id_to_imei.
type DriverConfig struct {
	ModemID                 int              `toml:"modem_id"`
	MaxFrameSize            int              `toml:"max_frame_size"`
	TargetBitRateBPS        int              `toml:"target_bit_rate_bps"`
	HandshakeHangupSeconds  int              `toml:"handshake_hangup_seconds"`
	HangupSecondsAfterEmpty int              `toml:"hangup_seconds_after_empty"`
	RUDICSServerPort        int              `toml:"rudics_server_port"`
	MOSBDServerPort         int              `toml:"mo_sbd_server_port"`
	MTSBDServerAddress      string           `toml:"mt_sbd_server_address"`
	MTSBDServerPort         int              `toml:"mt_sbd_server_port"`
	ModemIDToIMEI           []ModemIMEIEntry `toml:"modem_id_to_imei"`
}

// ModemIMEIEntry is one row of the driver's modem_id_to_imei table.
type ModemIMEIEntry struct {
	ModemID int    `toml:"modem_id"`
	IMEI    string `toml:"imei"`
}

// QueueConfig mirrors spec.md §6's per-queue stanza: kind, id, name,
// ack_required, blackout_seconds, max_queue_size, newest_first,
// priority_base, priority_time_constant_seconds, ttl_seconds, on_demand.
type QueueConfig struct {
	Kind                       string  `toml:"kind"`
	ID                         int     `toml:"id"`
	Name                       string  `toml:"name"`
	AckRequired                bool    `toml:"ack_required"`
	BlackoutSeconds            float64 `toml:"blackout_seconds"`
	MaxQueueSize               int     `toml:"max_queue_size"`
	NewestFirst                bool    `toml:"newest_first"`
	PriorityBase               float64 `toml:"priority_base"`
	PriorityTimeConstantSecond float64 `toml:"priority_time_constant_seconds"`
	TTLSeconds                 float64 `toml:"ttl_seconds"`
	OnDemand                   bool    `toml:"on_demand"`
}

// Load reads and validates path as a TOML acommsd configuration file,
// filling defaults before validation exactly the way LoadGhostConfig does.
func Load(path string) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Driver.MaxFrameSize == 0 {
		c.Driver.MaxFrameSize = 128
	}
	if c.Driver.HandshakeHangupSeconds == 0 {
		c.Driver.HandshakeHangupSeconds = 3
	}
	if c.Driver.HangupSecondsAfterEmpty == 0 {
		c.Driver.HangupSecondsAfterEmpty = 10
	}
	for i := range c.Queues {
		c.Queues[i].Kind = strings.ToLower(strings.TrimSpace(c.Queues[i].Kind))
		if c.Queues[i].Name == "" {
			c.Queues[i].Name = fmt.Sprintf("%s-%d", c.Queues[i].Kind, c.Queues[i].ID)
		}
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// Validate checks the driver stanza and every queue entry.
func Validate(cfg Config) error {
	if err := ValidateDriverConfig(cfg.Driver); err != nil {
		return fmt.Errorf("driver config invalid: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Queues))
	for i, q := range cfg.Queues {
		if err := ValidateQueueConfig(q); err != nil {
			return fmt.Errorf("queue[%d] invalid: %w", i, err)
		}
		key := fmt.Sprintf("%s:%d", strings.ToLower(q.Kind), q.ID)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("queue[%d] duplicate kind/id %s", i, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateDriverConfig checks the driver stanza in isolation.
func ValidateDriverConfig(cfg DriverConfig) error {
	if cfg.ModemID <= 0 {
		return fmt.Errorf("modem_id must be positive")
	}
	if cfg.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive")
	}
	if cfg.RUDICSServerPort <= 0 && cfg.MOSBDServerPort <= 0 {
		return fmt.Errorf("at least one of rudics_server_port or mo_sbd_server_port must be set")
	}
	seen := make(map[int]struct{}, len(cfg.ModemIDToIMEI))
	for i, entry := range cfg.ModemIDToIMEI {
		if strings.TrimSpace(entry.IMEI) == "" {
			return fmt.Errorf("modem_id_to_imei[%d] missing imei", i)
		}
		if _, dup := seen[entry.ModemID]; dup {
			return fmt.Errorf("modem_id_to_imei[%d] duplicate modem_id %d", i, entry.ModemID)
		}
		seen[entry.ModemID] = struct{}{}
	}
	return nil
}

// ValidateQueueConfig checks one queue stanza in isolation.
func ValidateQueueConfig(cfg QueueConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "dccl", "ccl":
	default:
		return fmt.Errorf("kind %q not recognized", cfg.Kind)
	}
	if cfg.MaxQueueSize < 0 {
		return fmt.Errorf("max_queue_size must not be negative")
	}
	if cfg.BlackoutSeconds < 0 {
		return fmt.Errorf("blackout_seconds must not be negative")
	}
	if cfg.TTLSeconds < 0 {
		return fmt.Errorf("ttl_seconds must not be negative")
	}
	return nil
}
