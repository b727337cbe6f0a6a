package domain

// Operation is a single permission-checked operation on a secret.
type Operation uint8

const (
	OpReadValue Operation = 1 << iota
	OpReadMetadata
	OpUpdate
	OpRotate
	OpDelete
	OpShare
)

// String returns a readable name for the operation.
func (o Operation) String() string {
	switch o {
	case OpReadValue:
		return "read_value"
	case OpReadMetadata:
		return "read_metadata"
	case OpUpdate:
		return "update"
	case OpRotate:
		return "rotate"
	case OpDelete:
		return "delete"
	case OpShare:
		return "share"
	default:
		return "unknown"
	}
}

// CapabilitySet is a set of operations a caller may perform on a secret.
type CapabilitySet uint8

// Allows reports whether op is a member of the set.
func (c CapabilitySet) Allows(op Operation) bool {
	return c&CapabilitySet(op) != 0
}

// Includes reports whether every operation in other is also in c.
func (c CapabilitySet) Includes(other CapabilitySet) bool {
	return c&other == other
}

// Empty reports whether the set grants nothing.
func (c CapabilitySet) Empty() bool {
	return c == 0
}

// Capability sets of the permission matrix. Owner is a superset of every share level.
const (
	NoCapabilities        CapabilitySet = 0
	ReadCapabilities                    = CapabilitySet(OpReadValue | OpReadMetadata)
	ReadWriteCapabilities               = ReadCapabilities | CapabilitySet(OpUpdate|OpRotate)
	OwnerCapabilities                   = ReadWriteCapabilities | CapabilitySet(OpDelete|OpShare)
)

// Capabilities returns the capability set granted by a share at this level.
func (p PermissionLevel) Capabilities() CapabilitySet {
	switch p {
	case PermissionRead:
		return ReadCapabilities
	case PermissionReadWrite:
		return ReadWriteCapabilities
	default:
		return NoCapabilities
	}
}

// Grant is the result of resolving a caller's access to a secret.
type Grant struct {
	// Owner is true when the caller owns the secret.
	Owner bool
	// Level is the share level when access comes from a share; empty for owners.
	Level        PermissionLevel
	Capabilities CapabilitySet
}

// NoAccess is the zero grant.
var NoAccess = Grant{}

// OwnerGrant returns the grant held by a secret's owner.
func OwnerGrant() Grant {
	return Grant{Owner: true, Capabilities: OwnerCapabilities}
}

// ShareGrant returns the grant conferred by a share at level.
func ShareGrant(level PermissionLevel) Grant {
	return Grant{Level: level, Capabilities: level.Capabilities()}
}

// HasAccess reports whether the grant confers any capability.
func (g Grant) HasAccess() bool {
	return !g.Capabilities.Empty()
}

// Allows reports whether the grant permits op.
func (g Grant) Allows(op Operation) bool {
	return g.Capabilities.Allows(op)
}

// Role returns a stable label for metrics and logs.
func (g Grant) Role() string {
	switch {
	case g.Owner:
		return "owner"
	case g.HasAccess():
		return string(g.Level)
	default:
		return "none"
	}
}
