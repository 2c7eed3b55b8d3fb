package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns the starter TOML for kind, grounded on
// internal/config/templates.go's Template/WriteTemplate pair — same
// "select by kind string, refuse to overwrite unless asked" contract.
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "acommsd", "driver":
		return acommsdTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

// WriteTemplate writes kind's starter TOML to path, refusing to clobber an
// existing file unless overwrite is set.
func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const acommsdTemplate = `[driver]
modem_id = 1
max_frame_size = 128
target_bit_rate_bps = 2400
handshake_hangup_seconds = 3
hangup_seconds_after_empty = 10
rudics_server_port = 44010
mo_sbd_server_port = 44011
mt_sbd_server_address = "10.0.0.1"
mt_sbd_server_port = 10800

[[driver.modem_id_to_imei]]
modem_id = 7
imei = "300234010123450"

[[queue]]
kind = "dccl"
id = 1
name = "status"
ack_required = false
max_queue_size = 10
priority_base = 1
priority_time_constant_seconds = 60
ttl_seconds = 300

[[queue]]
kind = "dccl"
id = 2
name = "command"
ack_required = true
max_queue_size = 4
newest_first = true
priority_base = 3
`
