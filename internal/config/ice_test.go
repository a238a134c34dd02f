package config

import (
	"errors"
	"testing"
)

func TestParseICEServersJSON(t *testing.T) {
	t.Parallel()

	raw := `[
	  {
	    "urls": ["stun:stun.example.com:3478"]
	  },
	  {
	    "urls": ["turn:turn.example.com:3478?transport=udp"],
	    "username": "user",
	    "credential": "pass"
	  }
	]`

	servers, err := ParseICEServersJSON(raw)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if got := servers[0].URLs; len(got) != 1 || got[0] != "stun:stun.example.com:3478" {
		t.Fatalf("unexpected stun urls: %#v", got)
	}
	if got := servers[1].Username; got != "user" {
		t.Fatalf("unexpected username: %q", got)
	}
	cred, ok := servers[1].Credential.(string)
	if !ok || cred != "pass" {
		t.Fatalf("unexpected credential: %#v", servers[1].Credential)
	}
}

func TestParseICEServersJSON_SupportsSingleStringURLs(t *testing.T) {
	t.Parallel()

	servers, err := ParseICEServersJSON(`[{"urls": "stun:stun.example.com:3478"}]`)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}
	if got := servers[0].URLs; len(got) != 1 || got[0] != "stun:stun.example.com:3478" {
		t.Fatalf("unexpected urls: %#v", got)
	}
}

func TestParseICEServersJSON_Rejects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`[{"urls": ["turn:turn.example.com:3478?transport=udp"]}]`,
		`[{"urls": ["http://example.com"]}]`,
		`[{"urls": []}]`,
		`{"urls": "stun:stun.example.com"}`,
	} {
		if _, err := ParseICEServersJSON(raw); err == nil {
			t.Fatalf("ParseICEServersJSON(%s): expected error", raw)
		}
	}
}

func TestParseICEServersFromConvenienceEnv(t *testing.T) {
	t.Parallel()

	servers, err := ParseICEServersFromConvenienceEnv(
		"stun:stun1.example.com:3478, stun:stun2.example.com:3478",
		"turn:turn.example.com:3478?transport=udp",
		"user",
		"pass",
	)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if got := servers[0].URLs; len(got) != 2 || got[1] != "stun:stun2.example.com:3478" {
		t.Fatalf("unexpected stun urls: %#v", got)
	}
	if got := servers[1].Username; got != "user" {
		t.Fatalf("unexpected username: %q", got)
	}
}

func TestParseICEServersFromConvenienceEnv_RequiresTURNCreds(t *testing.T) {
	t.Parallel()

	if _, err := ParseICEServersFromConvenienceEnv("", "turn:turn.example.com:3478", "user", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseICEServersFromValues_Precedence(t *testing.T) {
	t.Parallel()

	fromFile := []ICEServerSpec{{URLs: stringOrStringSlice{"stun:file.example.com"}}}

	servers, err := parseICEServersFromValues(`[{"urls":"stun:json.example.com"}]`, "stun:env.example.com", "", "", "", fromFile)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := servers[0].URLs[0]; got != "stun:json.example.com" {
		t.Fatalf("url=%q, want json value", got)
	}

	servers, err = parseICEServersFromValues("", "stun:env.example.com", "", "", "", fromFile)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := servers[0].URLs[0]; got != "stun:env.example.com" {
		t.Fatalf("url=%q, want env value", got)
	}

	servers, err = parseICEServersFromValues("", "", "", "", "", fromFile)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := servers[0].URLs[0]; got != "stun:file.example.com" {
		t.Fatalf("url=%q, want file value", got)
	}
}

func TestICEServerSpec_SchemesAndCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec ICEServerSpec
		want error
	}{
		{name: "stun", spec: ICEServerSpec{URLs: stringOrStringSlice{"stun:stun.example.com:3478"}}},
		{name: "stuns upper-case", spec: ICEServerSpec{URLs: stringOrStringSlice{"STUNS:stun.example.com:5349"}}},
		{name: "turns with creds", spec: ICEServerSpec{URLs: stringOrStringSlice{"turns:turn.example.com:5349"}, Username: "u", Credential: "p"}},
		{name: "turn without credential", spec: ICEServerSpec{URLs: stringOrStringSlice{"turn:turn.example.com"}, Username: "u"}, want: errTURNCredentials},
		{name: "no urls", spec: ICEServerSpec{}, want: errNoURLs},
		{name: "blank url", spec: ICEServerSpec{URLs: stringOrStringSlice{"stun:a.example.com", " "}}, want: errEmptyICEURLEntry},
	}
	for _, tt := range tests {
		_, err := tt.spec.toICEServer()
		if tt.want == nil && err != nil {
			t.Fatalf("%s: err=%v, want nil", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Fatalf("%s: err=%v, want %v", tt.name, err, tt.want)
		}
	}

	if _, err := (ICEServerSpec{URLs: stringOrStringSlice{"wss://example.com"}}).toICEServer(); err == nil {
		t.Fatalf("expected error for non-ICE scheme")
	}
}
