package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/RamanBirulia/stock-notebook/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg  config.LogConfig
		want zapcore.Level
	}{
		{config.LogConfig{Level: "debug", Encoding: "console"}, zapcore.DebugLevel},
		{config.LogConfig{Level: "WARN", Encoding: "json", Sampling: true}, zapcore.WarnLevel},
		{config.LogConfig{Level: "loud"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		log, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", tt.cfg, err)
		}
		if !log.Core().Enabled(tt.want) {
			t.Errorf("New(%+v): level %s disabled", tt.cfg, tt.want)
		}
		if tt.want > zapcore.DebugLevel && log.Core().Enabled(tt.want-1) {
			t.Errorf("New(%+v): level below %s enabled", tt.cfg, tt.want)
		}
	}
}
