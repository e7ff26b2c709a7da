package transport

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// PortRange is a host plus an inclusive min/max port range, adapted from
// kcptun's multiport listener addressing so a single -listen flag can
// stand up many acceptors sharing one process-wide cache and limiter
// (§11.1 of the expanded spec).
type PortRange struct {
	Host    string
	MinPort int
	MaxPort int
}

var portRangePattern = regexp.MustCompile(`(.*):([0-9]{1,5})-?([0-9]{1,5})?`)

// ParsePortRange parses "host:port" or "host:minport-maxport" into a
// PortRange. A single port yields MinPort == MaxPort.
func ParsePortRange(addr string) (*PortRange, error) {
	matches := portRangePattern.FindStringSubmatch(addr)
	if len(matches) < 3 {
		return nil, errors.Errorf("transport: malformed listen address %q", addr)
	}

	minPort, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, errors.Wrapf(err, "transport: invalid port in %q", addr)
	}
	maxPort := minPort
	if matches[3] != "" {
		maxPort, err = strconv.Atoi(matches[3])
		if err != nil {
			return nil, errors.Wrapf(err, "transport: invalid port range in %q", addr)
		}
	}

	if minPort == 0 || maxPort == 0 || minPort > maxPort || maxPort > 65535 {
		return nil, errors.Errorf("transport: invalid port range minport=%d maxport=%d", minPort, maxPort)
	}

	return &PortRange{Host: matches[1], MinPort: minPort, MaxPort: maxPort}, nil
}

// Addrs expands the range into one "host:port" string per port.
func (p *PortRange) Addrs() []string {
	addrs := make([]string, 0, p.MaxPort-p.MinPort+1)
	for port := p.MinPort; port <= p.MaxPort; port++ {
		addrs = append(addrs, p.Host+":"+strconv.Itoa(port))
	}
	return addrs
}
