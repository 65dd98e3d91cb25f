package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewRejectsBadFormat(t *testing.T) {
	_, err := New(&LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewFileWithoutPath(t *testing.T) {
	_, err := New(&LoggerConfig{Level: "info", File: FileAppenderOpt{Enabled: true}})
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"ERROR", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(&LoggerConfig{Level: tt.level})
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.IsDebugEnabled())
			assert.Equal(t, tt.info, l.IsInfoEnabled())
			assert.False(t, l.IsTraceEnabled())
		})
	}
}

func TestPatternOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{
		Level:   "debug",
		Pattern: "[%level] %field %msg%n",
	}, &buf)
	require.NoError(t, err)

	l.WithFields(map[string]interface{}{"seq": 10, "run": "abc"}).Debugf("sent %d", 1)

	assert.Equal(t, "[DEBUG] run=abc,seq=10 sent 1\n", buf.String())
}

func TestPatternAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{Level: "info", Pattern: "%msg"}, &buf)
	require.NoError(t, err)
	l.Info("hello")
	assert.Equal(t, "hello\n", buf.String())
}

func TestWithErrorField(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{Level: "info", Pattern: "%field|%msg"}, &buf)
	require.NoError(t, err)
	l.WithError(errors.New("boom")).Error("failed")
	assert.Equal(t, "error=boom|failed\n", buf.String())
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.WithField("packets", 3).Info("done")

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "done", m["msg"])
	assert.Equal(t, float64(3), m["packets"])
}

func TestPrefixedOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{Level: "info", Format: "prefixed"}, &buf)
	require.NoError(t, err)
	l.Info("capture reopened")
	assert.Contains(t, buf.String(), "capture reopened")
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtpreplay.log")
	var stdout bytes.Buffer
	l, err := newWithOutput(&LoggerConfig{
		Level: "info",
		File:  FileAppenderOpt{Enabled: true, Filename: path, MaxSize: 1},
	}, &stdout)
	require.NoError(t, err)

	l.Info("to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, stdout.String(), "to both")
}

func TestInitReplacesGlobal(t *testing.T) {
	before := GetLogger()
	require.NotNil(t, before)
	t.Cleanup(func() {
		mu.Lock()
		logger = before
		mu.Unlock()
	})

	require.NoError(t, Init(&LoggerConfig{Level: "debug"}))
	assert.True(t, GetLogger().IsDebugEnabled())
	assert.Error(t, Init(&LoggerConfig{Level: "nope"}))
}

func TestFormatterTime(t *testing.T) {
	f := &formatter{pattern: "%time", time: "15:04"}
	entry := logrus.NewEntry(logrus.New())
	entry.Time = time.Date(2024, 1, 2, 13, 45, 0, 0, time.UTC)
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "13:45\n", string(out))
}

func TestMultiWriterKeepsWritingAfterError(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMultiWriter().Add(&a).Add(failingWriter{}).Add(&b)
	n, err := m.Write([]byte("x"))
	assert.Equal(t, 1, n)
	assert.Error(t, err)
	assert.Equal(t, "x", a.String())
	assert.Equal(t, "x", strings.TrimSpace(b.String()))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }
