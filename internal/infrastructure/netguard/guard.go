// Package netguard 拦截指向内网或保留地址的出站请求
package netguard

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"

	apperrors "rfp-bot/pkg/errors"
)

// Resolver 域名解析，测试中可替换
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// reservedPrefixes 不在 net.IP 内置判断里的保留段
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// Check 只允许 http(s)，且主机解析出的每个地址都必须是公网地址
func Check(ctx context.Context, resolver Resolver, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.ErrScrapeBlocked.WithDetail("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.ErrScrapeBlocked.WithDetail("scheme " + u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return apperrors.ErrScrapeBlocked.WithDetail("missing host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if !isPublicIP(ip) {
			return apperrors.ErrScrapeBlocked.WithDetail(host)
		}
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return apperrors.ErrScrapeBlocked.WithDetail("resolve " + host).WithError(err)
	}
	if len(addrs) == 0 {
		return apperrors.ErrScrapeBlocked.WithDetail("no address for " + host)
	}
	for _, a := range addrs {
		if !isPublicIP(a.IP) {
			return apperrors.ErrScrapeBlocked.WithDetail(fmt.Sprintf("%s resolves to %s", host, a.IP))
		}
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() || ip.IsInterfaceLocalMulticast() {
		return false
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return false
	}
	addr = addr.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
