package discovery

import (
	"math"
	"net/netip"
	"strings"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// Classify determines the type of a target string and normalizes it.
// It never fails: anything that is not a network, address or URL is treated as a domain.
func Classify(input string) models.Target {
	s := strings.TrimSpace(input)

	if strings.Contains(s, "/") {
		if _, err := netip.ParsePrefix(s); err == nil {
			return models.Target{Value: s, Type: models.TargetCIDR}
		}
	}

	if _, err := netip.ParseAddr(s); err == nil {
		return models.Target{Value: s, Type: models.TargetIP}
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return models.Target{Value: s, Type: models.TargetURL}
	}

	return models.Target{Value: s, Type: models.TargetDomain}
}

// ExpandCIDR turns a network into at most limit host addresses.
// It returns the addresses in ascending order and how many usable hosts were left out.
// A network without usable hosts (/32, /128) yields its own address. An unparseable
// network yields nothing.
func ExpandCIDR(cidr string, limit int) ([]string, int) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil || limit < 0 {
		return nil, 0
	}
	prefix = prefix.Masked()

	first, usable := usableRange(prefix)
	if usable == 0 {
		return []string{prefix.Addr().String()}, 0
	}

	n := usable
	if n > uint64(limit) {
		n = uint64(limit)
	}

	ips := make([]string, 0, n)
	for ip := first; uint64(len(ips)) < n; ip = ip.Next() {
		ips = append(ips, ip.String())
	}

	skipped := usable - n
	if skipped > math.MaxInt {
		return ips, math.MaxInt
	}
	return ips, int(skipped)
}

// usableRange returns the first host address and the number of usable hosts.
// IPv4 drops network and broadcast except on /31; IPv6 drops only the
// subnet-router address except on /127. The count saturates at MaxUint64.
func usableRange(prefix netip.Prefix) (netip.Addr, uint64) {
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	network := prefix.Addr()

	switch {
	case hostBits == 0:
		return network, 0
	case hostBits == 1:
		return network, 2
	}

	var total uint64 = math.MaxUint64
	if hostBits < 64 {
		total = uint64(1) << uint(hostBits)
	}

	if network.Is4() {
		return network.Next(), total - 2
	}
	return network.Next(), total - 1
}
