package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.OpenState == c.Ledger.LockState {
		return fmt.Errorf("ledger.open_state and ledger.lock_state must differ, both are %q", c.Ledger.OpenState)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
}
