package main

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// countICEURLs tallies the STUN and TURN URLs advertised on /webrtc/ice.
func countICEURLs(servers []webrtc.ICEServer) (stun, turn int) {
	for _, server := range servers {
		for _, raw := range server.URLs {
			url := strings.ToLower(strings.TrimSpace(raw))
			switch {
			case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
				turn++
			case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
				stun++
			}
		}
	}
	return stun, turn
}
