package commands

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/suitescheduler/internal/config"
	"git.home.luguber.info/inful/suitescheduler/internal/event"
)

// CheckConfigCmd implements the 'check-config' command.
type CheckConfigCmd struct{}

func (c *CheckConfigCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration OK: %s\n", root.Config)
	fmt.Printf("  boards:        %s\n", strings.Join(cfg.Boards, ", "))
	fmt.Printf("  devservers:    %d\n", len(cfg.Devservers))
	fmt.Printf("  tick interval: %s\n", cfg.Driver.Tick())
	fmt.Printf("  events:        %s\n", strings.Join(configuredEvents(cfg), ", "))
	return nil
}

func validateConfig(cfg *config.Config) error {
	if len(cfg.Boards) == 0 {
		return fmt.Errorf("no boards configured")
	}
	if cfg.ManifestVersions.URL == "" {
		return fmt.Errorf("manifest_versions.url is required")
	}
	if cfg.Driver.TickInterval != "" {
		if _, err := time.ParseDuration(cfg.Driver.TickInterval); err != nil {
			return fmt.Errorf("invalid driver.tick_interval %q: %w", cfg.Driver.TickInterval, err)
		}
	}

	for _, keyword := range configuredEvents(cfg) {
		if _, err := event.ParseConfig(cfg, keyword); err != nil {
			return fmt.Errorf("section %s: %w", event.SectionName(keyword), err)
		}
	}
	return nil
}

func configuredEvents(cfg *config.Config) []string {
	var out []string
	for _, section := range cfg.Sections() {
		if event.HonoredSection(section) {
			out = append(out, strings.TrimSuffix(section, "_params"))
		}
	}
	return out
}
