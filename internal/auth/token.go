package auth

import (
    "time"

    "github.com/golang-jwt/jwt/v5"
    "golang.org/x/crypto/bcrypt"
)

// NewAdminToken builds and signs an HS256 JWT granting administrator
// capability for the given TTL. The token carries only the admin
// claim plus expiry and issued-at; it is not tied to any user id.
func NewAdminToken(secret string, ttl time.Duration) (string, error) {
    now := time.Now().UTC()
    claims := jwt.MapClaims{
        "admin": true,
        "exp":   now.Add(ttl).Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// VerifyAdminToken reports whether raw is a valid, unexpired admin
// token signed with secret.
func VerifyAdminToken(secret, raw string) bool {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return false
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return false
    }
    admin, _ := claims["admin"].(bool)
    return admin
}

// CheckAdminPassword safely compares the configured bcrypt hash with
// the submitted password.
func CheckAdminPassword(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
