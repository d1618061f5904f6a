package logger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	defer func() { require.NoError(t, InitializeDefault()) }()

	for _, encoding := range []string{"", ConsoleEncoding, JSONEncoding, LogfmtEncoding} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			err := Initialize(&Config{Level: DebugLevel, Encoding: encoding})
			require.NoError(t, err)
			require.NotNil(t, GetLogger())
			require.True(t, GetLogger().Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}

	t.Run("bad level", func(t *testing.T) {
		err := Initialize(&Config{Level: "loud", Encoding: ConsoleEncoding})
		require.EqualError(t, err, `invalid log level "loud": unrecognized level: "loud"`)
	})

	t.Run("bad encoding", func(t *testing.T) {
		err := Initialize(&Config{Level: InfoLevel, Encoding: "xml"})
		require.EqualError(t, err, `unsupported log encoding "xml"`)
	})
}

func TestWrapError(t *testing.T) {
	require.NoError(t, WrapError(nil, "ignored"))

	err := WrapError(errors.New("boom"), "loading %s", "config.json")
	require.EqualError(t, err, "loading config.json: boom")
}
