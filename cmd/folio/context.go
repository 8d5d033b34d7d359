package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/ledger"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) marks() ledger.Marks {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return ledger.DefaultMarks()
	}
	return ledger.Marks{
		Open:       cfg.Ledger.OpenState,
		Lock:       cfg.Ledger.LockState,
		TimeLayout: cfg.Ledger.TimeFormat,
	}
}

func (c *commandContext) openLedger(path string) (*ledger.Handler, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return ledger.Open(expanded, ledger.Options{Marks: c.marks()})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
