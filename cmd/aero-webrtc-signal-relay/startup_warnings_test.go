package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wilsonzlin/aero/proxy/webrtc-signal-relay/internal/config"
)

type recordedLog struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

type recordingHandler struct {
	mu      *sync.Mutex
	records *[]recordedLog
	attrs   []slog.Attr
	groups  []string
}

func newRecordingLogger() (*slog.Logger, func() []recordedLog) {
	mu := &sync.Mutex{}
	records := &[]recordedLog{}
	h := &recordingHandler{mu: mu, records: records}
	logger := slog.New(h)
	return logger, func() []recordedLog {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedLog, len(*records))
		copy(out, *records)
		return out
	}
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	rec := recordedLog{
		level: r.Level,
		msg:   r.Message,
		attrs: map[string]any{},
	}
	for _, a := range h.attrs {
		rec.attrs[h.key(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *recordingHandler) clone() *recordingHandler {
	cp := &recordingHandler{
		mu:      h.mu,
		records: h.records,
	}
	if len(h.attrs) > 0 {
		cp.attrs = append([]slog.Attr(nil), h.attrs...)
	}
	if len(h.groups) > 0 {
		cp.groups = append([]string(nil), h.groups...)
	}
	return cp
}

func (h *recordingHandler) key(k string) string {
	if len(h.groups) == 0 {
		return k
	}
	return strings.Join(h.groups, ".") + "." + k
}

func warningCodes(records []recordedLog) map[string]recordedLog {
	out := map[string]recordedLog{}
	for _, r := range records {
		if r.level != slog.LevelWarn {
			continue
		}
		if code, ok := r.attrs["warning_code"].(string); ok {
			out[code] = r
		}
	}
	return out
}

// quietConfig triggers no warnings.
func quietConfig(t *testing.T) config.Config {
	return config.Config{
		Mode:                 config.ModeDev,
		KeepaliveInterval:    50 * time.Second,
		StaticDir:            t.TempDir(),
		MaxMessageBytes:      1 << 20,
		MaxMessagesPerSecond: 0,
		SendQueueBytes:       4 << 20,
	}
}

func TestStartupWarnings_QuietDefaults(t *testing.T) {
	logger, records := newRecordingLogger()

	logStartupWarnings(logger, quietConfig(t))

	if got := warningCodes(records()); len(got) != 0 {
		t.Fatalf("expected no warnings, got %#v", got)
	}
}

func TestStartupWarnings_UnlimitedRateInProd(t *testing.T) {
	logger, records := newRecordingLogger()

	cfg := quietConfig(t)
	cfg.Mode = config.ModeProd

	logStartupWarnings(logger, cfg)

	r, ok := warningCodes(records())["max_messages_per_second_unlimited_in_prod"]
	if !ok {
		t.Fatalf("expected warning_code=max_messages_per_second_unlimited_in_prod, got %#v", records())
	}
	if r.attrs["mode"] != config.ModeProd {
		t.Fatalf("mode attr = %#v, want %q", r.attrs["mode"], config.ModeProd)
	}
}

func TestStartupWarnings_UnrestrictedOriginsInProd(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    bool
	}{
		{name: "empty", origins: nil, want: true},
		{name: "wildcard", origins: []string{"*"}, want: true},
		{name: "allowlist", origins: []string{"https://app.example"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, records := newRecordingLogger()
			cfg := quietConfig(t)
			cfg.Mode = config.ModeProd
			cfg.MaxMessagesPerSecond = 10
			cfg.AllowedOrigins = tt.origins

			logStartupWarnings(logger, cfg)

			_, got := warningCodes(records())["allowed_origins_unrestricted_in_prod"]
			if got != tt.want {
				t.Fatalf("warned=%v, want %v (records %#v)", got, tt.want, records())
			}
		})
	}
}

func TestStartupWarnings_MessageSizes(t *testing.T) {
	logger, records := newRecordingLogger()

	cfg := quietConfig(t)
	cfg.MaxMessageBytes = 8 << 20

	logStartupWarnings(logger, cfg)

	codes := warningCodes(records())
	for _, want := range []string{"max_message_bytes_large", "max_message_exceeds_send_queue"} {
		if _, ok := codes[want]; !ok {
			t.Fatalf("expected warning_code=%s, got %#v", want, codes)
		}
	}
}

func TestStartupWarnings_StaticDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{name: "missing", dir: filepath.Join(t.TempDir(), "nope"), want: "static_dir_missing"},
		{name: "file", dir: file, want: "static_dir_not_directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, records := newRecordingLogger()
			cfg := quietConfig(t)
			cfg.StaticDir = tt.dir

			logStartupWarnings(logger, cfg)

			if _, ok := warningCodes(records())[tt.want]; !ok {
				t.Fatalf("expected warning_code=%s, got %#v", tt.want, records())
			}
		})
	}
}

func TestStartupWarnings_InvalidICEConfig(t *testing.T) {
	t.Setenv("AERO_ICE_SERVERS_JSON", `[{"urls":"http://example.com"}]`)
	cfg, err := config.Load([]string{"--static-dir", ""})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	logger, records := newRecordingLogger()
	logStartupWarnings(logger, cfg)

	if _, ok := warningCodes(records())["ice_config_invalid"]; !ok {
		t.Fatalf("expected warning_code=ice_config_invalid, got %#v", records())
	}
}
