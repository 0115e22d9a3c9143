package discovery

import (
	"errors"
	"net"
)

// Resolver finds the local IPv4 address and the broadcast address of its
// subnet.
type Resolver interface {
	Resolve() (local net.IP, broadcast net.IP, err error)
}

// LimitedBroadcast is used when no interface can be introspected.
var LimitedBroadcast = net.IPv4bcast

var errNoInterface = errors.New("no up, non-loopback IPv4 interface")

// InterfaceResolver picks the first up, non-loopback IPv4 interface.
type InterfaceResolver struct{}

// Resolve implements Resolver.
func (InterfaceResolver) Resolve() (net.IP, net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			return ip4, broadcastAddr(ip4, ipNet.Mask), nil
		}
	}

	return nil, nil, errNoInterface
}

// broadcastAddr sets every host bit of ip under mask.
func broadcastAddr(ip net.IP, mask net.IPMask) net.IP {
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

// StaticResolver returns fixed addresses.
type StaticResolver struct {
	Local     net.IP
	Broadcast net.IP
}

// Resolve implements Resolver.
func (r StaticResolver) Resolve() (net.IP, net.IP, error) {
	return r.Local, r.Broadcast, nil
}
