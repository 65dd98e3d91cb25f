package log

const (
	DefaultPattern    = "%time [%level] %field %msg%n"
	DefaultTimeLayout = "2006-01-02 15:04:05.000"
)

// LoggerConfig selects level, layout and outputs. Stdout is always written.
type LoggerConfig struct {
	Level   string          `mapstructure:"level"`
	Format  string          `mapstructure:"format"` // pattern / json / prefixed
	Pattern string          `mapstructure:"pattern"`
	Time    string          `mapstructure:"time"`
	File    FileAppenderOpt `mapstructure:"file"`
}
