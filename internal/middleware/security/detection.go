package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"finances/internal/log"
	"finances/internal/metrics"
)

// Reasons reported by Detect.
const (
	ReasonPath      = "path_pattern"
	ReasonQuery     = "query_pattern"
	ReasonUserAgent = "user_agent"
	ReasonMethod    = "method"
	ReasonLength    = "url_length"
	ReasonProxyHops = "proxy_hops"
)

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	blockedMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

const maxURLLength = 2048

// Detector handles suspicious request detection
type Detector struct {
	trustedProxies []*net.IPNet
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// Detect returns the first reason r looks like probing, or "" when it
// looks ordinary.
func (d *Detector) Detect(r *http.Request) string {
	if blockedMethods[r.Method] {
		return ReasonMethod
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonLength
	}
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range suspiciousPatterns {
		if strings.Contains(path, p) {
			return ReasonPath
		}
		if strings.Contains(query, p) {
			return ReasonQuery
		}
	}
	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range suspiciousAgents {
		if strings.Contains(agent, a) {
			return ReasonUserAgent
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return ReasonProxyHops
	}
	return ""
}

// Middleware logs flagged requests. Blocked methods and path probes are
// answered with 404 without reaching the router; other reasons pass.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.Detect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		metrics.SuspiciousRequests.WithLabelValues(reason).Inc()
		log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
			"Suspicious request",
			"reason", reason,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		if reason == ReasonMethod || reason == ReasonPath {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the client address, honouring X-Forwarded-For
// and X-Real-IP only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
