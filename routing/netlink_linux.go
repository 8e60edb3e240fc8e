//go:build linux

package routing

import (
	"net/netip"

	"github.com/pkg/errors"
	"github.com/soypat/lnetstack/datalink"
	"github.com/vishvananda/netlink"
)

// LoadFromNetlink populates t with the kernel's routing table for linkName,
// binding every matched route to iface. Like internal/linktap, it talks to
// the host networking stack directly, rather than operating
// purely on injected datalink frames: a TAP-backed interface still needs
// its routes seeded from somewhere, and the kernel's own table (set up by
// whatever configured the TAP device) is the natural source.
func LoadFromNetlink(t *Table, linkName string, iface *datalink.Interface) error {
	link, err := netlink.LinkByName(linkName)
	if err != nil {
		return errors.Wrapf(err, "routing: link %q not found", linkName)
	}
	routes, err := netlink.RouteList(link, netlink.FAMILY_ALL)
	if err != nil {
		return errors.Wrapf(err, "routing: listing routes for %q", linkName)
	}
	for _, r := range routes {
		if r.Dst == nil {
			continue // default route handled by a caller-supplied 0.0.0.0/0 entry, if any.
		}
		prefix, ok := netip.AddrFromSlice(r.Dst.IP)
		if !ok {
			continue
		}
		ones, _ := r.Dst.Mask.Size()
		network := netip.PrefixFrom(prefix.Unmap(), ones)
		var gw netip.Addr
		if r.Gw != nil {
			gw, _ = netip.AddrFromSlice(r.Gw)
			gw = gw.Unmap()
		}
		t.AddRoute(network, gw, iface)
	}
	return nil
}
