// Package access narrows what a signed-in user may see or change. The
// database policies stay authoritative; these checks only keep handlers from
// asking for rows the user has no business with.
package access

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/school-office/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Principal: кто делает запрос. Assignments заполняются из БД для учителей.
type Principal struct {
	UserID      int64
	Role        models.Role
	SchoolID    int64
	Assignments []models.TeacherAssignment
}

// Claims: токен от сервиса авторизации, в sub id пользователя.
type Claims struct {
	Role     string `json:"role"`
	SchoolID int64  `json:"school_id"`
	jwt.RegisteredClaims
}

// ParseToken проверяет HS256-подпись и срок действия.
func ParseToken(raw, secret string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || secret == "" {
		return Principal{}, ErrUnauthorized
	}
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Principal{}, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}
	role := models.Role(strings.ToLower(c.Role))
	if !role.Valid() || c.SchoolID <= 0 {
		return Principal{}, fmt.Errorf("%w: bad role or school", ErrUnauthorized)
	}
	return Principal{UserID: uid, Role: role, SchoolID: c.SchoolID}, nil
}

// IssueToken: для киоска, cmd и тестов; в проде токены выдаёт сервис авторизации.
func IssueToken(p Principal, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Role:     string(p.Role),
		SchoolID: p.SchoolID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
