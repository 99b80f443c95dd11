// Package discovery implements mDNS/DNS-SD discovery for fragudp servers.
//
// Servers advertise a single service type, _fragudp._udp, so clients on the
// local link can find them without configuring addresses. Both peers of a
// transport must agree on the MTU, so it is published with the service.
//
// # TXT Records
//
//	v     wire format version ("1.0")
//	mtu   datagram size in bytes
//	role  "server"
//	name  human-readable server name (optional)
//
// # Usage
//
//	adv, _ := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
//	adv.Advertise(ctx, &discovery.ServerInfo{InstanceName: "lab-1", Port: 9000, MTU: 576})
//	defer adv.Stop()
//
//	browser, _ := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
//	servers, _ := browser.Browse(ctx)
//	for svc := range servers {
//	    addr, ok := svc.AddrPort()
//	    ...
//	}
package discovery
