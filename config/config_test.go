package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(FlagName(LogLevelKey), "info", "")
	flags.String(FlagName(OrdererOrgKey), "OrdererOrg", "")
	flags.Bool(FlagName(OutputIndentKey), false, "")
	flags.String(FlagName(ChangeLogKey), "stdout", "")
	return flags
}

func withEnvFilePaths(t *testing.T, paths ...string) {
	saved := EnvFilePaths
	EnvFilePaths = paths
	t.Cleanup(func() { EnvFilePaths = saved })
}

func TestLoadDefaults(t *testing.T) {
	withEnvFilePaths(t)

	config, err := Load(newFlagSet())
	require.NoError(t, err)
	require.Equal(t, "info", string(config.Log.Level))
	require.Equal(t, "console", config.Log.Encoding)
	require.False(t, config.Log.Development)
	require.Equal(t, "OrdererOrg", config.Orderer.Org)
	require.False(t, config.Output.Indent)
	require.Equal(t, "stdout", config.ChangeLog.Output)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`
# comment
CONFIGUPDATE_LOG_LEVEL=warn
CONFIGUPDATE_ORDERER_ORG="OrdererMSP"
CONFIGUPDATE_LOG_ENCODING=logfmt
malformed line
`), 0o644))
	withEnvFilePaths(t, filepath.Join(dir, "missing.env"), envFile)

	for _, key := range []string{"CONFIGUPDATE_LOG_LEVEL", "CONFIGUPDATE_ORDERER_ORG", "CONFIGUPDATE_LOG_ENCODING"} {
		key := key
		if v, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	t.Setenv("CONFIGUPDATE_LOG_LEVEL", "error")

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--indent"}))

	config, err := Load(flags)
	require.NoError(t, err)
	// the environment wins over the .env file
	require.Equal(t, "error", string(config.Log.Level))
	require.Equal(t, "logfmt", config.Log.Encoding)
	require.Equal(t, "OrdererMSP", config.Orderer.Org)
	require.True(t, config.Output.Indent)

	// an explicit flag wins over the environment
	require.NoError(t, flags.Parse([]string{"--org", "Org3"}))
	config, err = Load(flags)
	require.NoError(t, err)
	require.Equal(t, "Org3", config.Orderer.Org)
}

func TestLoadRejectsEmptyOrg(t *testing.T) {
	withEnvFilePaths(t)

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--org", ""}))
	_, err := Load(flags)
	require.EqualError(t, err, "orderer org cannot be empty")
}
