package config

const (
	defaultLedgerDir        = "~/.local/share/folio/ledgers"
	defaultLogDir           = "~/.local/share/folio/logs"
	defaultBind             = "127.0.0.1:8081"
	defaultOpenState        = "n.a."
	defaultLockState        = "busy"
	defaultTimeFormat       = "2006-01-02_15:04:05"
	defaultRequestTimeout   = 30
	defaultUpdateTimeout    = 60
	defaultHandlerCacheSize = 16
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerDir: defaultLedgerDir,
			LogDir:    defaultLogDir,
			Bind:      defaultBind,
		},
		Ledger: Ledger{
			OpenState:  defaultOpenState,
			LockState:  defaultLockState,
			TimeFormat: defaultTimeFormat,
		},
		Service: Service{
			RequestTimeout:   defaultRequestTimeout,
			UpdateTimeout:    defaultUpdateTimeout,
			HandlerCacheSize: defaultHandlerCacheSize,
			AuditJournal:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
