package stage

// HandleRole says whether a connection point starts or ends an edge.
type HandleRole string

// Handle roles.
const (
	RoleSource HandleRole = "source"
	RoleTarget HandleRole = "target"
)

// Side is the node side a handle is drawn on.
type Side string

// Handle sides.
const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Handle is a connection point declared by a node type.
type Handle struct {
	ID   string     `json:"id,omitempty"`
	Role HandleRole `json:"role"`
	Side Side       `json:"side"`
}

// Handles returns the connection points a node declares.
func Handles(n Node) []Handle {
	if n.IsParent() {
		return []Handle{
			{Role: RoleSource, Side: SideRight},
			{Role: RoleTarget, Side: SideTop},
		}
	}

	var hs []Handle
	if !n.Data.IsLast {
		hs = append(hs, Handle{Role: RoleSource, Side: SideBottom})
	}
	return append(hs,
		Handle{ID: "a", Role: RoleTarget, Side: SideLeft},
		Handle{ID: "b", Role: RoleSource, Side: SideRight},
	)
}

// CanConnect reports whether c joins a source handle to a target handle
// that both exist in g. An empty handle id matches the node's first handle
// of the required role.
func CanConnect(g Graph, c Connection) bool {
	src, ok := g.Node(c.Source)
	if !ok || !hasHandle(src, RoleSource, c.SourceHandle) {
		return false
	}
	dst, ok := g.Node(c.Target)
	if !ok || !hasHandle(dst, RoleTarget, c.TargetHandle) {
		return false
	}
	return true
}

func hasHandle(n Node, role HandleRole, id string) bool {
	for _, h := range Handles(n) {
		if h.Role != role {
			continue
		}
		if id == "" || h.ID == id {
			return true
		}
	}
	return false
}
