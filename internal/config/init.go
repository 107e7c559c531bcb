package config

import (
	"fmt"
	"os"
)

// Example sections such as nightly_params are raw mappings, not typed fields,
// so the example file is a template rather than a marshalled Config.
const exampleConfig = `# suitescheduler configuration

boards:
  - x86-alex
  - daisy

# Optional board name translation applied before build lookups.
board_aliases: {}

devservers:
  - http://devserver1.example.com:8082
  - http://devserver2.example.com:8082

manifest_versions:
  url: https://chromium.googlesource.com/chromiumos/manifest-versions
  # dir defaults to <storage.data_dir>/manifest-versions

driver:
  tick_interval: 5m
  board_concurrency: 4
  admin_port: 8085

storage:
  data_dir: ./sched-data

notify:
  enabled: false
  nats_url: nats://127.0.0.1:4222
  subject: suitescheduler.dispatch

# Event sections. Only sections named <keyword>_params are honored.
new_build_params:
  always_handle: false
`

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
