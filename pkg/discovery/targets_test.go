package discovery

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want models.Target
	}{
		{"192.0.2.0/28", models.Target{Value: "192.0.2.0/28", Type: models.TargetCIDR}},
		{"192.0.2.5/28", models.Target{Value: "192.0.2.5/28", Type: models.TargetCIDR}},
		{"2001:db8::/64", models.Target{Value: "2001:db8::/64", Type: models.TargetCIDR}},
		{"  8.8.8.8 ", models.Target{Value: "8.8.8.8", Type: models.TargetIP}},
		{"::1", models.Target{Value: "::1", Type: models.TargetIP}},
		{"https://example.com/login", models.Target{Value: "https://example.com/login", Type: models.TargetURL}},
		{"http://10.0.0.1", models.Target{Value: "http://10.0.0.1", Type: models.TargetURL}},
		{"example.com", models.Target{Value: "example.com", Type: models.TargetDomain}},
		{"example.com/path", models.Target{Value: "example.com/path", Type: models.TargetDomain}},
		{"not a target!!", models.Target{Value: "not a target!!", Type: models.TargetDomain}},
		{"", models.Target{Value: "", Type: models.TargetDomain}},
	}

	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestExpandCIDR(t *testing.T) {
	tests := []struct {
		name        string
		cidr        string
		limit       int
		wantCount   int
		wantSkipped int
		wantFirst   string
		wantLast    string
	}{
		{"capped", "192.0.2.0/28", 5, 5, 9, "192.0.2.1", "192.0.2.5"},
		{"under cap", "192.0.2.0/28", 64, 14, 0, "192.0.2.1", "192.0.2.14"},
		{"exact cap", "192.0.2.0/28", 14, 14, 0, "192.0.2.1", "192.0.2.14"},
		{"host bits set", "192.0.2.9/29", 64, 6, 0, "192.0.2.9", "192.0.2.14"},
		{"slash 24", "10.1.2.0/24", 64, 64, 190, "10.1.2.1", "10.1.2.64"},
		{"slash 30", "10.0.0.0/30", 64, 2, 0, "10.0.0.1", "10.0.0.2"},
		{"slash 31", "10.0.0.0/31", 64, 2, 0, "10.0.0.0", "10.0.0.1"},
		{"slash 32", "10.0.0.7/32", 64, 1, 0, "10.0.0.7", "10.0.0.7"},
		{"ipv6", "2001:db8::/126", 64, 3, 0, "2001:db8::1", "2001:db8::3"},
		{"ipv6 single", "2001:db8::1/128", 64, 1, 0, "2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ips, skipped := ExpandCIDR(tt.cidr, tt.limit)
			if len(ips) != tt.wantCount {
				t.Fatalf("got %d addresses, want %d", len(ips), tt.wantCount)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
			if ips[0] != tt.wantFirst || ips[len(ips)-1] != tt.wantLast {
				t.Errorf("range = %s..%s, want %s..%s", ips[0], ips[len(ips)-1], tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestExpandCIDRMinOfUsableAndLimit(t *testing.T) {
	// 192.0.2.0/27 has 30 usable hosts
	for limit := 0; limit <= 40; limit++ {
		ips, skipped := ExpandCIDR("192.0.2.0/27", limit)
		wantCount := min(30, limit)
		wantSkipped := max(0, 30-limit)
		if len(ips) != wantCount || skipped != wantSkipped {
			t.Errorf("limit %d: got (%d, %d), want (%d, %d)", limit, len(ips), skipped, wantCount, wantSkipped)
		}
	}
}

func TestExpandCIDRLargeIPv6Saturates(t *testing.T) {
	ips, skipped := ExpandCIDR("2001:db8::/32", 4)
	want := []string{"2001:db8::1", "2001:db8::2", "2001:db8::3", "2001:db8::4"}
	if diff := cmp.Diff(want, ips); diff != "" {
		t.Errorf("addresses mismatch (-want +got):\n%s", diff)
	}
	if skipped <= 0 {
		t.Errorf("skipped = %d, want a large positive count", skipped)
	}
}

func TestExpandCIDRInvalid(t *testing.T) {
	for _, in := range []string{"", "example.com", "10.0.0.0/33", "300.1.1.0/24"} {
		ips, skipped := ExpandCIDR(in, 64)
		if len(ips) != 0 || skipped != 0 {
			t.Errorf("ExpandCIDR(%q) = (%v, %d), want empty", in, ips, skipped)
		}
	}
}
