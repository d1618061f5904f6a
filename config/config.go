package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/ddr4869/bftconfig/common/changelog"
	"github.com/ddr4869/bftconfig/common/configtx"
	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the tool, e.g.
// CONFIGUPDATE_LOG_LEVEL for log.level.
const EnvPrefix = "CONFIGUPDATE"

// Configuration keys and the command-line flags bound to them.
const (
	LogLevelKey       = "log.level"
	LogEncodingKey    = "log.encoding"
	LogDevelopmentKey = "log.development"
	OrdererOrgKey     = "orderer.org"
	OutputIndentKey   = "output.indent"
	ChangeLogKey      = "changelog.output"
)

var flagNames = map[string]string{
	LogLevelKey:       "log-level",
	LogEncodingKey:    "log-encoding",
	LogDevelopmentKey: "log-development",
	OrdererOrgKey:     "org",
	OutputIndentKey:   "indent",
	ChangeLogKey:      "changelog",
}

// FlagName returns the command-line flag bound to a configuration key.
func FlagName(key string) string {
	return flagNames[key]
}

type OrdererConfig struct {
	// Org is the orderer organization group holding the endpoints.
	Org string
}

type OutputConfig struct {
	Indent bool
}

type ChangeLogConfig struct {
	// Output is stdout, stderr, none or a file path.
	Output string
}

type Config struct {
	Log       *logger.Config
	Orderer   *OrdererConfig
	Output    *OutputConfig
	ChangeLog *ChangeLogConfig
}

// EnvFilePaths are searched in order for a .env file; the first one found is loaded.
var EnvFilePaths = []string{
	"config/.env",
	".env",
}

// Load merges, from lowest to highest precedence, built-in defaults, a .env file,
// CONFIGUPDATE_* environment variables and the flags of the given set that were
// explicitly changed.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(EnvFilePaths); err != nil {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(LogLevelKey, string(logger.InfoLevel))
	v.SetDefault(LogEncodingKey, logger.ConsoleEncoding)
	v.SetDefault(LogDevelopmentKey, false)
	v.SetDefault(OrdererOrgKey, configtx.DefaultOrdererOrg)
	v.SetDefault(OutputIndentKey, false)
	v.SetDefault(ChangeLogKey, changelog.Stdout)

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "failed to bind flag --%s", name)
			}
		}
	}

	config := &Config{
		Log: &logger.Config{
			Level:       logger.LogLevel(strings.ToLower(v.GetString(LogLevelKey))),
			Encoding:    strings.ToLower(v.GetString(LogEncodingKey)),
			Development: v.GetBool(LogDevelopmentKey),
		},
		Orderer: &OrdererConfig{
			Org: v.GetString(OrdererOrgKey),
		},
		Output: &OutputConfig{
			Indent: v.GetBool(OutputIndentKey),
		},
		ChangeLog: &ChangeLogConfig{
			Output: v.GetString(ChangeLogKey),
		},
	}

	if config.Orderer.Org == "" {
		return nil, errors.New("orderer org cannot be empty")
	}
	return config, nil
}

// loadEnvFile .env 파일 로드. Variables already present in the environment win.
func loadEnvFile(paths []string) error {
	var envPath string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			envPath = path
			break
		}
	}

	if envPath == "" {
		return nil
	}

	file, err := os.Open(envPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open .env file: %s", envPath)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// 빈 줄이나 주석 무시
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// KEY=VALUE 파싱
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// 따옴표 제거
		if len(value) >= 2 && (value[0] == '"' && value[len(value)-1] == '"') {
			value = value[1 : len(value)-1]
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return errors.Wrapf(err, "failed to set %s", key)
		}
	}

	return scanner.Err()
}

// PrintConfig logs the effective configuration at debug level.
func (c *Config) PrintConfig() {
	logger.Debugf("=== Configuration ===")
	logger.Debugf(" > Log Level: %s", c.Log.Level)
	logger.Debugf(" > Log Encoding: %s", c.Log.Encoding)
	logger.Debugf(" > Orderer Org: %s", c.Orderer.Org)
	logger.Debugf(" > Indent Output: %t", c.Output.Indent)
	logger.Debugf(" > Changelog: %s", c.ChangeLog.Output)
}
