package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	f := &Formatter{TimestampFormat: "15:04:05"}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "page evicted",
		Data:    logrus.Fields{"component": "BufferPool", "page": 7, "dirty": true},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[03:04:05] [WARN] [BufferPool] page evicted dirty=true page=7\n", string(out))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}

func TestInitWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "slotdb.log")
	require.NoError(t, Init(Config{Level: "info", LogFile: path}))
	t.Cleanup(func() { _ = Init(Config{Level: "warn"}) })

	For("Test").Info("hello")
	For("Test").Debug("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] [Test] hello")
	assert.NotContains(t, string(data), "hidden")
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug"}))
	t.Cleanup(func() { _ = Init(Config{Level: "warn"}) })
	SetOutput(&buf)

	For("Heap").WithField("table", "t1").Debug("insert")
	assert.Contains(t, buf.String(), "[DEBU] [Heap] insert table=t1")
}
