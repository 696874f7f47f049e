package config

import "go.uber.org/zap/zapcore"

// LoggingConfig configures the category file loggers.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // false = no log files at all
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// IsCategoryEnabled reports whether a category writes a log file. Nothing is
// enabled outside debug mode; in debug mode unlisted categories are on.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// ZapLevel maps Level onto a zap level, defaulting to info.
func (c *LoggingConfig) ZapLevel() zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
