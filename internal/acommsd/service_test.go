package acommsd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tsaubergine/acomms/internal/dccl"
	"github.com/tsaubergine/acomms/internal/testutil/testlog"
)

const testConfigTOML = `
[driver]
modem_id = 1
max_frame_size = 128
rudics_server_port = 44010
mo_sbd_server_port = 44011
mt_sbd_server_address = "127.0.0.1"
mt_sbd_server_port = 10800

[[driver.modem_id_to_imei]]
modem_id = 7
imei = "300234010123450"

[[queue]]
kind = "ccl"
id = 1
name = "status"

[[queue]]
kind = "dccl"
id = 2
name = "command"
ack_required = true
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "acommsd.toml")
	if err := os.WriteFile(path, []byte(testConfigTOML), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestBootstrapWiresQueuesAndDriver(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.ConfigPath = writeTestConfig(t)
	cfg.Schemas = map[int]*dccl.CompiledSchema{
		2: {},
	}

	svc := NewService(cfg)
	if err := svc.bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if svc.manager == nil || svc.drv == nil || svc.admin == nil || svc.router == nil {
		t.Fatalf("bootstrap left a component unwired: %+v", svc)
	}
}

func TestBootstrapFailsWithoutWiredDCCLSchema(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.ConfigPath = writeTestConfig(t)
	// cfg.Schemas intentionally left empty: the dccl queue in
	// testConfigTOML has no compiled schema wired.

	svc := NewService(cfg)
	if err := svc.bootstrap(); err == nil {
		t.Fatalf("expected bootstrap to fail without a wired dccl schema")
	}
}

func TestBootstrapFailsOnMissingConfigFile(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.ConfigPath = filepath.Join(t.TempDir(), "does-not-exist.toml")

	svc := NewService(cfg)
	if err := svc.bootstrap(); err == nil {
		t.Fatalf("expected bootstrap to fail for a missing config file")
	}
}
