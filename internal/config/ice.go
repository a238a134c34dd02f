package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

const (
	envICEServersJSON = "AERO_ICE_SERVERS_JSON"

	envStunURLs       = "AERO_STUN_URLS"
	envTurnURLs       = "AERO_TURN_URLS"
	envTurnUsername   = "AERO_TURN_USERNAME"
	envTurnCredential = "AERO_TURN_CREDENTIAL"
)

var (
	errNoURLs           = errors.New("missing urls")
	errTURNCredentials  = errors.New("turn urls require username and credential")
	errEmptyICEURLEntry = errors.New("urls must not contain empty entries")
)

// ICEServerSpec is one STUN/TURN server as written in AERO_ICE_SERVERS_JSON
// or the config file's [[ice_servers]] tables. In JSON, urls may be a single
// string.
type ICEServerSpec struct {
	URLs       stringOrStringSlice `json:"urls" toml:"urls"`
	Username   string              `json:"username,omitempty" toml:"username"`
	Credential string              `json:"credential,omitempty" toml:"credential"`
}

type stringOrStringSlice []string

func (s *stringOrStringSlice) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// toICEServer checks every URL with pion's STUN/TURN URI parser. TURN URLs
// need both a username and a credential.
func (spec ICEServerSpec) toICEServer() (webrtc.ICEServer, error) {
	if len(spec.URLs) == 0 {
		return webrtc.ICEServer{}, errNoURLs
	}

	server := webrtc.ICEServer{
		URLs:     make([]string, 0, len(spec.URLs)),
		Username: strings.TrimSpace(spec.Username),
	}
	turn := false
	for _, raw := range spec.URLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return webrtc.ICEServer{}, errEmptyICEURLEntry
		}
		uri, err := stun.ParseURI(raw)
		if err != nil {
			return webrtc.ICEServer{}, fmt.Errorf("url %q: %w", raw, err)
		}
		if uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS {
			turn = true
		}
		server.URLs = append(server.URLs, raw)
	}

	if cred := strings.TrimSpace(spec.Credential); cred != "" {
		server.Credential = cred
	}
	if turn && (server.Username == "" || server.Credential == nil) {
		return webrtc.ICEServer{}, errTURNCredentials
	}
	return server, nil
}

func toICEServers(specs []ICEServerSpec) ([]webrtc.ICEServer, error) {
	var out []webrtc.ICEServer
	for i, spec := range specs {
		server, err := spec.toICEServer()
		if err != nil {
			return nil, fmt.Errorf("iceServers[%d]: %w", i, err)
		}
		out = append(out, server)
	}
	return out, nil
}

// ParseICEServersJSON parses a JSON array of ICE servers.
func ParseICEServersJSON(raw string) ([]webrtc.ICEServer, error) {
	var specs []ICEServerSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, err
	}
	return toICEServers(specs)
}

// ParseICEServersFromConvenienceEnv builds at most one STUN and one TURN
// server from comma-separated URL lists.
func ParseICEServersFromConvenienceEnv(stunURLs, turnURLs, turnUsername, turnCredential string) ([]webrtc.ICEServer, error) {
	var servers []webrtc.ICEServer
	if urls := splitCommaSeparated(stunURLs); len(urls) > 0 {
		server, err := ICEServerSpec{URLs: urls}.toICEServer()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envStunURLs, err)
		}
		servers = append(servers, server)
	}
	if urls := splitCommaSeparated(turnURLs); len(urls) > 0 {
		server, err := ICEServerSpec{URLs: urls, Username: turnUsername, Credential: turnCredential}.toICEServer()
		if errors.Is(err, errTURNCredentials) {
			return nil, fmt.Errorf("%s/%s: both must be set when %s is set", envTurnUsername, envTurnCredential, envTurnURLs)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envTurnURLs, err)
		}
		servers = append(servers, server)
	}
	return servers, nil
}

// parseICEServersFromValues picks the first configured source:
// AERO_ICE_SERVERS_JSON, then the STUN/TURN variables, then the config file.
func parseICEServersFromValues(iceServersJSON, stunURLs, turnURLs, turnUsername, turnCredential string, fromFile []ICEServerSpec) ([]webrtc.ICEServer, error) {
	switch {
	case strings.TrimSpace(iceServersJSON) != "":
		servers, err := ParseICEServersJSON(strings.TrimSpace(iceServersJSON))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envICEServersJSON, err)
		}
		return servers, nil
	case strings.TrimSpace(stunURLs) != "" || strings.TrimSpace(turnURLs) != "":
		return ParseICEServersFromConvenienceEnv(stunURLs, turnURLs, turnUsername, turnCredential)
	default:
		servers, err := toICEServers(fromFile)
		if err != nil {
			return nil, fmt.Errorf("config file ice_servers: %w", err)
		}
		return servers, nil
	}
}

func splitCommaSeparated(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
