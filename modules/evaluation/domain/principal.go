package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// PrincipalRole is the caller's role. RoleNone is the fail-closed value and is
// granted nothing by any resolver.
type PrincipalRole string

const (
	RoleNone      PrincipalRole = ""
	RoleAdmin     PrincipalRole = "Admin"
	RoleEvaluator PrincipalRole = "Evaluator"
	RoleEmployee  PrincipalRole = "Employee"
)

// ParseRole matches the three system roles case-insensitively.
func ParseRole(s string) (PrincipalRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "evaluator":
		return RoleEvaluator, true
	case "employee":
		return RoleEmployee, true
	default:
		return RoleNone, false
	}
}

// Principal is the resolved identity of the caller for one operation.
type Principal struct {
	UserID       int64
	Role         PrincipalRole
	DepartmentID int64
}

// Valid reports whether the principal carries a recognised role and a positive id.
func (p Principal) Valid() bool {
	if p.UserID <= 0 {
		return false
	}
	switch p.Role {
	case RoleAdmin, RoleEvaluator, RoleEmployee:
		return true
	default:
		return false
	}
}

func (p Principal) IsAdmin() bool {
	return p.Valid() && p.Role == RoleAdmin
}

func (p Principal) String() string {
	if !p.Valid() {
		return "principal(none)"
	}
	return fmt.Sprintf("%s#%d", p.Role, p.UserID)
}

// FromClaims extracts a principal from a claims bundle. It never fails: anything
// malformed yields a principal with RoleNone.
func FromClaims(claims jwt.MapClaims) Principal {
	if claims == nil {
		return Principal{}
	}

	id, ok := positiveInt(claims["sub"])
	if !ok {
		id, ok = positiveInt(claims["user_id"])
	}
	roleClaim, _ := claims["role"].(string)
	role, roleOK := ParseRole(roleClaim)
	if !ok || !roleOK {
		return Principal{}
	}

	dept, _ := positiveInt(claims["department_id"])
	return Principal{UserID: id, Role: role, DepartmentID: dept}
}

// Claims renders the principal as a claims bundle; FromClaims(p.Claims()) == p.
func (p Principal) Claims() jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(p.UserID, 10),
		"role": string(p.Role),
	}
	if p.DepartmentID > 0 {
		claims["department_id"] = p.DepartmentID
	}
	return claims
}

// ParseToken verifies an HS256 token and extracts the principal from its claims.
func ParseToken(token string, secret []byte) (Principal, error) {
	if len(secret) == 0 {
		return Principal{}, fmt.Errorf("parse token: empty secret")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	return FromClaims(claims), nil
}

func positiveInt(v any) (int64, bool) {
	var n int64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	case nil:
		return 0, false
	default:
		parsed, ok := toInt64(v)
		if !ok {
			return 0, false
		}
		n = parsed
	}
	return n, n > 0
}
