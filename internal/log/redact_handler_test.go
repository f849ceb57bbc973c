package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestRedactHandler_MasksSensitiveKeys tests that sensitive keys are masked.
func TestRedactHandler_MasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{
			name:     "cookie key is masked",
			key:      "cookie",
			value:    "session=abc123",
			wantMask: true,
		},
		{
			name:     "Cookie key (uppercase) is masked",
			key:      "Cookie",
			value:    "session=abc123",
			wantMask: true,
		},
		{
			name:     "authorization key is masked",
			key:      "authorization",
			value:    "Bearer token123",
			wantMask: true,
		},
		{
			name:     "password key is masked",
			key:      "password",
			value:    "secretpassword",
			wantMask: true,
		},
		{
			name:     "token key is masked",
			key:      "token",
			value:    "jwt.token.here",
			wantMask: true,
		},
		{
			name:     "x-api-key header is masked",
			key:      "x-api-key",
			value:    "apikey123",
			wantMask: true,
		},
		{
			name:     "url key passes through",
			key:      "url",
			value:    "https://example.com/page",
			wantMask: false,
		},
		{
			name:     "status key passes through",
			key:      "status",
			value:    "200",
			wantMask: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value %q to be masked, output: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask %q in output: %s", MaskValue, output)
				}
			} else {
				if !strings.Contains(output, tt.value) {
					t.Errorf("expected value %q in output: %s", tt.value, output)
				}
			}
		})
	}
}

func TestRedactHandler_MasksGroupedAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("request sent",
		slog.Group("headers",
			slog.String("Accept", "text/html"),
			slog.String("Authorization", "Bearer token123"),
		),
	)

	output := buf.String()
	if strings.Contains(output, "Bearer token123") {
		t.Errorf("expected grouped authorization value to be masked, output: %s", output)
	}
	if !strings.Contains(output, "text/html") {
		t.Errorf("expected non-sensitive grouped value in output: %s", output)
	}
}

func TestRedactHandler_WithAttrsMasks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactHandler(slog.NewTextHandler(&buf, nil)))

	logger.With("cookie", "session=abc").Info("crawling")

	output := buf.String()
	if strings.Contains(output, "session=abc") {
		t.Errorf("expected pre-attached cookie to be masked, output: %s", output)
	}
	if !strings.Contains(output, MaskValue) {
		t.Errorf("expected mask in output: %s", output)
	}
}

func TestRedactHandler_NilHandlerFallsBack(t *testing.T) {
	t.Parallel()

	h := NewRedactHandler(nil)
	if h == nil {
		t.Fatal("NewRedactHandler(nil) returned nil")
	}
}
