package gmaps

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardDestination(t *testing.T) {
	tests := []struct {
		address string
		allowed bool
	}{
		{"142.250.74.46:443", true},
		{"[2a00:1450:4001:82b::200e]:443", true},
		{"127.0.0.1:80", false},
		{"[::1]:80", false},
		{"10.1.2.3:80", false},
		{"172.16.0.1:80", false},
		{"192.168.1.1:443", false},
		{"169.254.169.254:80", false},
		{"[fe80::1]:80", false},
		{"[fd00::1]:80", false},
		{"0.0.0.0:80", false},
		{"100.64.0.1:80", false},
		{"[::ffff:127.0.0.1]:80", false},
		{"224.0.0.1:80", false},
		{"not-an-address", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			err := guardDestination("tcp", tt.address, nil)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbiddenDestination)
			}
		})
	}
}

func TestPublicAddress(t *testing.T) {
	assert.True(t, publicAddress(netip.MustParseAddr("8.8.8.8")))
	assert.False(t, publicAddress(netip.MustParseAddr("100.127.255.255")))
}
