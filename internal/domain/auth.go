package domain

import "time"

// Role is a coarse authorization tier.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePaidUser Role = "paidUser"
)

// roleRank orders roles; a lower rank carries more privilege.
var roleRank = map[Role]int{
	RoleAdmin:    0,
	RolePaidUser: 1,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether r meets the min threshold. Unknown roles never do.
func (r Role) Satisfies(min Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[min]
	if !ok {
		return false
	}
	return have <= want
}

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Identity is the authenticated caller resolved from a verified token.
type Identity struct {
	SubjectID int64 `json:"subjectId"`
	Role      Role  `json:"role"`
}

// TokenPayload is the verified content of a session token.
type TokenPayload struct {
	ID        string
	SubjectID int64
	Role      Role
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity returns the subject/role pair carried by the payload.
func (p TokenPayload) Identity() Identity {
	return Identity{SubjectID: p.SubjectID, Role: p.Role}
}

// RouteSecurityDescriptor is the per-route security metadata read by the guards.
// An empty MinRole means any authenticated caller; an empty Kind means access.
type RouteSecurityDescriptor struct {
	IsPublic bool
	MinRole  Role
	Kind     TokenKind
}

// ExpectedKind returns the token kind the route accepts.
func (d RouteSecurityDescriptor) ExpectedKind() TokenKind {
	if d.Kind == "" {
		return TokenKindAccess
	}
	return d.Kind
}
