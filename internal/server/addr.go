package server

import "net"

// advertiseHost picks the address players should dial. A wildcard bind is
// replaced by the first private IPv4 address of an interface that is up.
func advertiseHost(bind string) string {
	if bind != "" && bind != "0.0.0.0" && bind != "::" {
		return bind
	}
	if ip := LANAddress(); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// LANAddress returns the first private IPv4 address of a non-loopback
// interface, or "" when there is none.
func LANAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	var fallback string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil {
				continue
			}
			if ip.IsPrivate() {
				return ip.String()
			}
			if fallback == "" && ip.IsGlobalUnicast() {
				fallback = ip.String()
			}
		}
	}
	return fallback
}
