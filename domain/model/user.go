package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// User is a platform user. Sessions are issued by the main application; this
// service only verifies the resulting JWT and resolves the subject.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserClaims carries the JWT claims the auth middleware cares about.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
