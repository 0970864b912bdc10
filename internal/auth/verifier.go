package auth

import (
    "errors"

    "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer credential cannot be
// verified as belonging to any identity.
var ErrInvalidToken = errors.New("invalid token")

// Verifier validates a bearer token issued by the external identity
// provider and returns the user identity it encodes.
type Verifier interface {
    VerifyBearerToken(token string) (Identity, error)
}

// JWTVerifier verifies HS256 access tokens minted by the identity
// provider. The subject claim carries the user id; email, name and
// phone are read from the standard and metadata claims when present.
type JWTVerifier struct {
    secret string
}

// NewJWTVerifier returns a JWTVerifier using the provider's signing
// secret.
func NewJWTVerifier(secret string) *JWTVerifier { return &JWTVerifier{secret: secret} }

// VerifyBearerToken implements Verifier. Any parse or signature
// failure, a non-HMAC signing method or a missing subject results in
// ErrInvalidToken.
func (v *JWTVerifier) VerifyBearerToken(raw string) (Identity, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(v.secret), nil
    })
    if err != nil || !tok.Valid {
        return Identity{}, ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Identity{}, ErrInvalidToken
    }
    sub, _ := claims["sub"].(string)
    if sub == "" {
        return Identity{}, ErrInvalidToken
    }
    id := Identity{UserID: sub}
    if email, ok := claims["email"].(string); ok {
        id.Email = email
    }
    // The provider stores optional profile fields under user_metadata.
    if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
        if name, ok := meta["name"].(string); ok {
            id.Name = name
        }
        if phone, ok := meta["phone"].(string); ok {
            id.Phone = phone
        }
    }
    return id, nil
}
