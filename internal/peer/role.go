package peer

import (
	"fmt"
	"strings"
)

// NodeRole is the operating mode of the local (or a remote) node.
type NodeRole int

const (
	RoleFullNode NodeRole = iota + 1
	RoleHarvester
	RoleFarmer
	RoleTimelord
	RoleIntroducer
	RoleWallet
	RoleDataLayer
)

var roleNames = map[NodeRole]string{
	RoleFullNode:   "full_node",
	RoleHarvester:  "harvester",
	RoleFarmer:     "farmer",
	RoleTimelord:   "timelord",
	RoleIntroducer: "introducer",
	RoleWallet:     "wallet",
	RoleDataLayer:  "data_layer",
}

func (r NodeRole) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// SeedsFromDNS reports whether a node in this role re-discovers its
// persistent peer through a DNS seed lookup before reconnecting.
func (r NodeRole) SeedsFromDNS() bool { return r == RoleHarvester }

// ParseNodeRole accepts the names printed by String, case-insensitively.
// Hyphens are treated as underscores ("full-node").
func ParseNodeRole(s string) (NodeRole, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown node role %q", s)
}

// RoleNames lists every valid role name in declaration order.
func RoleNames() []string {
	out := make([]string, 0, len(roleNames))
	for r := RoleFullNode; r <= RoleDataLayer; r++ {
		out = append(out, roleNames[r])
	}
	return out
}
