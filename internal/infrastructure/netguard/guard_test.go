package netguard

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rfp-bot/pkg/errors"
)

type fakeResolver map[string][]string

func (f fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := f[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	out := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out, nil
}

func TestCheck(t *testing.T) {
	resolver := fakeResolver{
		"example.com":  {"93.184.216.34"},
		"intranet.lan": {"10.0.0.7"},
		"mixed.test":   {"93.184.216.34", "127.0.0.1"},
		"cgnat.test":   {"100.64.1.1"},
	}
	tests := []struct {
		url     string
		blocked bool
	}{
		{"https://example.com/about", false},
		{"http://intranet.lan", true},
		{"https://mixed.test", true},
		{"https://cgnat.test", true},
		{"http://127.0.0.1:8080", true},
		{"http://169.254.169.254/latest/meta-data", true},
		{"http://[::1]/", true},
		{"http://8.8.8.8", false},
		{"ftp://example.com", true},
		{"https://unknown.invalid", true},
		{"https://", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := Check(context.Background(), resolver, tt.url)
			if !tt.blocked {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeScrapeBlocked, apperrors.AsAppError(err).Code)
		})
	}
}
