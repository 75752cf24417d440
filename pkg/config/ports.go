package config

import "sort"

// topPortSeed is the seed list the Fast profile is cut from. Some entries repeat;
// TopPorts dedups and keeps the lowest 100.
var topPortSeed = []int{
	20, 21, 22, 23, 25, 53, 80, 88, 110, 111, 135, 137, 138, 139, 143, 443, 445,
	587, 631, 993, 995, 1433, 1723, 3306, 3389, 5900, 8080, 8443,
	7, 9, 13, 17, 19, 26, 37, 42, 49, 53, 70, 79, 81, 82, 83, 84, 85, 88, 89, 90,
	99, 100, 106, 109, 110, 111, 113, 119, 135, 139, 143, 144, 146, 161, 163, 179,
	199, 211, 212, 222, 254, 255, 256, 259, 264, 389, 443, 444, 445, 456, 464, 465,
	481, 497, 500, 513, 514, 515, 524, 541, 543, 544, 548, 554, 563, 587, 593, 631,
	636, 646, 648, 666, 667, 668, 683, 687, 691, 700, 705, 711, 714, 720, 722, 726,
	749, 800, 808,
}

// extraCommonPorts are high ports added to the system range for the Full profile
var extraCommonPorts = []int{
	// Databases
	1433, 1521, 3306, 5432, 5984, 6379, 27017,
	// Alternative web
	8000, 8008, 8080, 8443, 8888, 9000, 9090, 9443, 10000,
	// Remote administration
	3389, 5900, 5985, 5986,
	// Misc
	1883, 5000, 5060, 5353, 5601, 8081, 9200,
}

var (
	topPorts      = buildTopPorts()
	extendedPorts = buildExtendedPorts()
)

// TopPorts returns the Fast profile port list
func TopPorts() []int {
	return append([]int(nil), topPorts...)
}

// ExtendedPorts returns the Full profile port list: TopPorts, every system port and common high ports
func ExtendedPorts() []int {
	return append([]int(nil), extendedPorts...)
}

func buildTopPorts() []int {
	ports := uniqueSorted(topPortSeed)
	if len(ports) > 100 {
		ports = ports[:100]
	}
	return ports
}

func buildExtendedPorts() []int {
	all := append([]int(nil), buildTopPorts()...)
	for p := 1; p <= 1024; p++ {
		all = append(all, p)
	}
	all = append(all, extraCommonPorts...)
	return uniqueSorted(all)
}

func uniqueSorted(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
