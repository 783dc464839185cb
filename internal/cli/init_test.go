package cli

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level     string
		enabled   slog.Level
		disabled  slog.Level
		wantCheck bool
	}{
		{"debug", slog.LevelDebug, 0, false},
		{"warn", slog.LevelWarn, slog.LevelInfo, true},
		{"", slog.LevelInfo, slog.LevelDebug, true},
	}
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := SetupLogger(tt.level)
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %v should be enabled", tt.enabled)
			}
			if tt.wantCheck && logger.Enabled(ctx, tt.disabled) {
				t.Errorf("level %v should be disabled", tt.disabled)
			}
			if !slog.Default().Enabled(ctx, tt.enabled) {
				t.Error("logger was not installed as the default")
			}
		})
	}
}
