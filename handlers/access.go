package handlers

import (
	"fmt"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// AccessList restricts which client addresses may use the dashboard.
// A nil list admits everyone.
type AccessList struct {
	allow []*net.IPNet
	deny  []*net.IPNet
}

// ParseAccessList builds a list from comma separated CIDRs or bare IPs.
// It returns nil when both lists are empty.
func ParseAccessList(allowCSV, denyCSV string) (*AccessList, error) {
	allow, err := parseNetworks(allowCSV)
	if err != nil {
		return nil, fmt.Errorf("invalid allow list: %w", err)
	}
	deny, err := parseNetworks(denyCSV)
	if err != nil {
		return nil, fmt.Errorf("invalid deny list: %w", err)
	}
	if len(allow) == 0 && len(deny) == 0 {
		return nil, nil
	}
	return &AccessList{allow: allow, deny: deny}, nil
}

// Admits reports whether ip may connect. Deny entries win over allow entries.
func (a *AccessList) Admits(ip net.IP) bool {
	if a == nil {
		return true
	}
	if ip == nil {
		return false
	}
	for _, n := range a.deny {
		if n.Contains(ip) {
			return false
		}
	}
	if len(a.allow) == 0 {
		return true
	}
	for _, n := range a.allow {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware rejects clients outside the list with 403
func (a *AccessList) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Admits(net.ParseIP(c.ClientIP())) {
			errV2(c, CodeForbidden, "client address not allowed", c.ClientIP())
			return
		}
		c.Next()
	}
}

func parseNetworks(csv string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP %q", raw)
			}
			if ip4 := ip.To4(); ip4 != nil {
				raw = ip4.String() + "/32"
			} else {
				raw = ip.String() + "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q", raw)
		}
		out = append(out, ipNet)
	}
	return out, nil
}
