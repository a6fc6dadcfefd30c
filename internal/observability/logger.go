// Package observability holds the process-wide CLI logger.
package observability

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by commands. It writes to stderr so stdout
// stays reserved for results. It is a no-op until InitCLILogger runs.
var CLILogger = zap.NewNop()

var cliLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// InitCLILogger replaces CLILogger. structured selects JSON lines; the
// default console format prints the level and message only.
func InitCLILogger(serviceName string, structured bool) {
	CLILogger = NewCLILogger(os.Stderr, serviceName, structured)
}

// NewCLILogger builds a CLI logger on w sharing the process log level.
func NewCLILogger(w io.Writer, serviceName string, structured bool) *zap.Logger {
	var enc zapcore.Encoder
	if structured {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: " ",
		})
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), cliLevel)
	logger := zap.New(core)
	if structured && serviceName != "" {
		logger = logger.With(zap.String("service", serviceName))
	}
	return logger
}

// SetLevel changes the level of every logger built by this package.
func SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	cliLevel.SetLevel(lvl)
	return nil
}

// Level returns the current CLI log level.
func Level() zapcore.Level {
	return cliLevel.Level()
}
