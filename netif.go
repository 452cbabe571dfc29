package bacnet

import (
	"fmt"
	"net"
)

// InterfaceAddrs returns the first non-loopback IPv4 address of the named
// interface and its directed broadcast address, both on port.
func InterfaceAddrs(ifaceName string, port int) (local, broadcast *net.UDPAddr, err error) {
	intf, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find interface %s: %w", ifaceName, err)
	}

	addrs, err := intf.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("could not get addresses for interface %s: %w", ifaceName, err)
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip := ipnet.IP.To4(); ip != nil {
			return &net.UDPAddr{IP: ip, Port: port}, &net.UDPAddr{IP: directedBroadcast(ip, ipnet.Mask), Port: port}, nil
		}
	}
	return nil, nil, fmt.Errorf("could not find a suitable IPv4 address on interface %s", ifaceName)
}

func directedBroadcast(ip net.IP, mask net.IPMask) net.IP {
	ip = ip.To4()
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	broadcastIP := make(net.IP, len(ip))
	for i := 0; i < len(ip); i++ {
		broadcastIP[i] = ip[i] | (^mask[i])
	}
	return broadcastIP
}
