package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNoopBeforeInit(t *testing.T) {
	// Must not panic or write anywhere.
	Info("before init", zap.Int("n", 1))
}

func TestInitLoggerWritesToPath(t *testing.T) {
	prev := current()
	t.Cleanup(func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	})

	path := filepath.Join(t.TempDir(), "obdmeter.log")
	InitLogger(false, path)
	Info("connected", zap.String("device", "OBDII"))
	Debug("hidden at info level")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"connected"`) || !strings.Contains(out, `"device":"OBDII"`) {
		t.Errorf("log = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %s", out)
	}
}
