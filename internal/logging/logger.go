// Package logging provides categorized zap loggers for hatch.
// Logs go to stderr; user-facing output never goes through this package.
// Without --verbose only warnings and errors are emitted.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, logger and state dir setup
	CategoryCLI       Category = "cli"       // Dispatcher state transitions
	CategoryArgs      Category = "args"      // Argument parsing
	CategoryConfig    Category = "config"    // Config loading and registrations
	CategoryRuntime   Category = "runtime"   // Environment and task execution
	CategoryAnalytics Category = "analytics" // Task hits
	CategoryReporter  Category = "reporter"  // Error reporting channel
	CategorySecrets   Category = "secrets"   // Secrets store
	CategoryProject   Category = "project"   // Project discovery and scaffolding
)

var (
	mu       sync.RWMutex
	root     = zap.NewNop()
	disabled = map[Category]bool{}
)

// Initialize builds the process-wide logger. verbose switches to a
// human-readable development encoder at debug level.
func Initialize(verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.Sampling = nil
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetRoot(logger)
	return logger, nil
}

// SetRoot replaces the process-wide logger. Tests use it to install
// zap.NewNop() or an observer core.
func SetRoot(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// SetCategoryEnabled silences or re-enables one category.
func SetCategoryEnabled(category Category, enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	disabled[category] = !enabled
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return !disabled[category]
}

// Get returns the logger for a category. Disabled categories get a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if disabled[category] {
		return zap.NewNop()
	}
	return root.Named(string(category))
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := root
	mu.RUnlock()
	_ = l.Sync()
}

func sugar(category Category) *zap.SugaredLogger {
	return Get(category).Sugar()
}

// Boot logs a startup message.
func Boot(format string, args ...interface{}) {
	sugar(CategoryBoot).Infof(format, args...)
}

func BootDebug(format string, args ...interface{}) {
	sugar(CategoryBoot).Debugf(format, args...)
}

func CLI(format string, args ...interface{}) {
	sugar(CategoryCLI).Infof(format, args...)
}

func CLIDebug(format string, args ...interface{}) {
	sugar(CategoryCLI).Debugf(format, args...)
}

func CLIWarn(format string, args ...interface{}) {
	sugar(CategoryCLI).Warnf(format, args...)
}

func ArgsDebug(format string, args ...interface{}) {
	sugar(CategoryArgs).Debugf(format, args...)
}

func ConfigDebug(format string, args ...interface{}) {
	sugar(CategoryConfig).Debugf(format, args...)
}

func RuntimeDebug(format string, args ...interface{}) {
	sugar(CategoryRuntime).Debugf(format, args...)
}

func AnalyticsDebug(format string, args ...interface{}) {
	sugar(CategoryAnalytics).Debugf(format, args...)
}

func ReporterDebug(format string, args ...interface{}) {
	sugar(CategoryReporter).Debugf(format, args...)
}

func ReporterWarn(format string, args ...interface{}) {
	sugar(CategoryReporter).Warnf(format, args...)
}

func SecretsDebug(format string, args ...interface{}) {
	sugar(CategorySecrets).Debugf(format, args...)
}

func ProjectDebug(format string, args ...interface{}) {
	sugar(CategoryProject).Debugf(format, args...)
}
