package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLedger()
	c.normalizeService()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LedgerDir) == "" {
		c.Paths.LedgerDir = defaultLedgerDir
	}
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return fmt.Errorf("paths.ledger_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	return nil
}

func (c *Config) normalizeLedger() {
	if strings.TrimSpace(c.Ledger.OpenState) == "" {
		c.Ledger.OpenState = defaultOpenState
	}
	if strings.TrimSpace(c.Ledger.LockState) == "" {
		c.Ledger.LockState = defaultLockState
	}
	if strings.TrimSpace(c.Ledger.TimeFormat) == "" {
		c.Ledger.TimeFormat = defaultTimeFormat
	}
}

func (c *Config) normalizeService() {
	if c.Service.RequestTimeout <= 0 {
		c.Service.RequestTimeout = defaultRequestTimeout
	}
	if c.Service.UpdateTimeout <= 0 {
		c.Service.UpdateTimeout = defaultUpdateTimeout
	}
	if c.Service.HandlerCacheSize <= 0 {
		c.Service.HandlerCacheSize = defaultHandlerCacheSize
	}
	trimmed := make([]string, 0, len(c.Service.AllowedClients))
	for _, client := range c.Service.AllowedClients {
		if value := strings.TrimSpace(client); value != "" {
			trimmed = append(trimmed, value)
		}
	}
	c.Service.AllowedClients = trimmed
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
