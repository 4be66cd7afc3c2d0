package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Permission is an access level. Declaration order is privilege order, so
// the numeric value doubles as the rank.
type Permission uint8

const (
	PermissionNone Permission = iota
	PermissionRead
	PermissionDelete
	PermissionUpdate
	PermissionCreate
	PermissionFull
)

var permissionNames = [...]string{
	PermissionNone:   "none",
	PermissionRead:   "read",
	PermissionDelete: "delete",
	PermissionUpdate: "update",
	PermissionCreate: "create",
	PermissionFull:   "full",
}

// ParsePermission accepts exactly the six lower-case names, ignoring surrounding space.
func ParsePermission(raw string) (Permission, error) {
	name := strings.TrimSpace(raw)
	for p, n := range permissionNames {
		if n == name {
			return Permission(p), nil
		}
	}
	return PermissionNone, fmt.Errorf("%w: %q", ErrInvalidPermission, raw)
}

func (p Permission) Valid() bool { return int(p) < len(permissionNames) }

// Rank orders permissions: full 5, create 4, update 3, delete 2, read 1, none 0.
func (p Permission) Rank() int { return int(p) }

func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

// Satisfies reports whether p grants at least required. none never satisfies.
func (p Permission) Satisfies(required Permission) bool {
	return p != PermissionNone && p.Rank() >= required.Rank()
}

// MostPermissive reduces ps to the highest-ranked value, or none when empty.
func MostPermissive(ps ...Permission) Permission {
	best := PermissionNone
	for _, p := range ps {
		if p.Rank() > best.Rank() {
			best = p
		}
	}
	return best
}

func (p Permission) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, ErrInvalidPermission
	}
	return json.Marshal(p.String())
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidPermission
	}
	parsed, err := ParsePermission(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the permission by name.
func (p Permission) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, ErrInvalidPermission
	}
	return p.String(), nil
}

func (p *Permission) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrInvalidPermission, value)
	}
	parsed, err := ParsePermission(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
