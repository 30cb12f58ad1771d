package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel(INFO)
	})

	SetLevel(WARN)
	Debugf("depuração %d", 0)
	Infof("ignorada %d", 1)
	Warnf("aviso %d", 2)
	Error("falhou", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "depuração")
	assert.NotContains(t, out, "ignorada")
	assert.Contains(t, out, "aviso 2")
	assert.Contains(t, out, "falhou")
	assert.Contains(t, out, "boom")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"debug": DEBUG, "INFO": INFO, "warning": WARN, "error": ERROR, "": INFO}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestEnableFileLogging(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	require.NoError(t, EnableFileLogging(dir, "robot"))
	WithComponent("test").Info("mensagem no arquivo")
	Sync()

	files, err := filepath.Glob(filepath.Join(dir, "robot_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "mensagem no arquivo")
	assert.Contains(t, buf.String(), "mensagem no arquivo")
}
