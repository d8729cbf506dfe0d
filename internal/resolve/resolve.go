// Package resolve rewrites RTMP destination URLs to point at a resolved IPv4
// address before ffmpeg is started.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Resolver looks up addresses for a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Error reports a hostname that could not be resolved.
type Error struct {
	Host string
	Err  error
}

func (e *Error) Error() string {
	return "Failed to resolve hostname: " + e.Host
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoAddress is wrapped when a lookup succeeds without any IPv4 address.
var ErrNoAddress = errors.New("no IPv4 address")

// Destination returns rawURL with the host of an rtmp:// or rtmps:// URL
// replaced by its first IPv4 address. Port, path and stream key are kept
// byte for byte. Other schemes and IP hosts are returned unchanged.
// A nil resolver uses net.DefaultResolver.
func Destination(ctx context.Context, resolver Resolver, rawURL string) (string, error) {
	if !IsRTMP(rawURL) {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse destination: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", &Error{Host: host, Err: errors.New("empty host")}
	}
	if net.ParseIP(host) != nil {
		return rawURL, nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}
	ips, err := resolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", &Error{Host: host, Err: err}
	}
	if len(ips) == 0 {
		return "", &Error{Host: host, Err: ErrNoAddress}
	}

	return replaceHost(rawURL, host, ips[0].String()), nil
}

// IsRTMP reports whether rawURL uses the rtmp or rtmps scheme.
func IsRTMP(rawURL string) bool {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return false
	}
	scheme = strings.ToLower(scheme)
	return scheme == "rtmp" || scheme == "rtmps"
}

// replaceHost swaps host for ip inside the authority section only.
func replaceHost(rawURL, host, ip string) string {
	scheme, rest, _ := strings.Cut(rawURL, "://")
	authority, path := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}
	userinfo := ""
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		userinfo, authority = authority[:i+1], authority[i+1:]
	}
	authority = strings.Replace(authority, host, ip, 1)
	return scheme + "://" + userinfo + authority + path
}
