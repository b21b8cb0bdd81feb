package domain

import "fmt" // Error formatting

// Role is the enumerated account role stored on a User
type Role string

const (
	RoleUser  Role = "user"  // Regular player
	RoleAdmin Role = "admin" // Lottery administrator
)

// Permission is a capability that a route can require
type Permission int

const (
	PermPlayLottery     Permission = iota // Submit and inspect own draws
	PermManageLottery                     // Create winning draws and run rounds
	PermViewUsers                         // List registered accounts
	PermViewSecurityLog                   // Read the security event log
)

var rolePermissions = map[Role][]Permission{
	RoleUser:  {PermPlayLottery},
	RoleAdmin: {PermManageLottery, PermViewUsers, PermViewSecurityLog},
}

// Can reports whether the role grants the permission
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole converts a raw string into a known Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (p Permission) String() string {
	switch p {
	case PermPlayLottery:
		return "play_lottery"
	case PermManageLottery:
		return "manage_lottery"
	case PermViewUsers:
		return "view_users"
	case PermViewSecurityLog:
		return "view_security_log"
	}
	return fmt.Sprintf("permission(%d)", int(p))
}
