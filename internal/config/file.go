package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional TOML layer. Values it defines sit between the
// built-in defaults and the environment.
//
//	port = 3000
//	stage = "production"
//	keepalive_interval = "50s"
//
//	[webrtc]
//	port_base = 500
//	port_count = 5
//
//	[[ice_servers]]
//	urls = ["stun:stun.example.com:3478"]
type fileConfig struct {
	Port            int           `toml:"port"`
	ListenAddr      string        `toml:"listen_addr"`
	Stage           string        `toml:"stage"`
	Mode            string        `toml:"mode"`
	LogFormat       string        `toml:"log_format"`
	LogLevel        string        `toml:"log_level"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	WebRTC struct {
		PortBase  int `toml:"port_base"`
		PortCount int `toml:"port_count"`
	} `toml:"webrtc"`

	KeepaliveInterval    time.Duration `toml:"keepalive_interval"`
	StaticDir            string        `toml:"static_dir"`
	MaxMessageBytes      int64         `toml:"max_message_bytes"`
	MaxMessagesPerSecond int           `toml:"max_messages_per_second"`
	SendQueueBytes       int           `toml:"send_queue_bytes"`
	AllowedOrigins       []string      `toml:"allowed_origins"`

	ICEServers []ICEServerSpec `toml:"ice_servers"`

	md toml.MetaData
}

func loadFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}

	md, err := toml.DecodeFile(path, fc)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	fc.md = md
	return fc, nil
}

// defined reports whether the file set the dotted key.
func (fc *fileConfig) defined(key string) bool {
	return fc.md.IsDefined(strings.Split(key, ".")...)
}

func (fc *fileConfig) stringOr(key, v, fallback string) string {
	if fc.defined(key) {
		return v
	}
	return fallback
}

func (fc *fileConfig) intOr(key string, v, fallback int) int {
	if fc.defined(key) {
		return v
	}
	return fallback
}

func (fc *fileConfig) durationOr(key string, v, fallback time.Duration) time.Duration {
	if fc.defined(key) {
		return v
	}
	return fallback
}
