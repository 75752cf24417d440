package models

// TargetType is the kind of input a run was started with
type TargetType string

const (
	TargetDomain TargetType = "domain"
	TargetIP     TargetType = "ip"
	TargetCIDR   TargetType = "cidr"
	TargetURL    TargetType = "url"
)

// Target is a normalized scan target
type Target struct {
	Value string     `json:"value"`
	Type  TargetType `json:"type"`
}

func (t Target) String() string {
	return t.Value
}
