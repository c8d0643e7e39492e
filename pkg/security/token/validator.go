package token

import (
	"encoding/hex"

	"aidanwoods.dev/go-paseto"
)

// Validator verifies tokens and extracts claims.
type Validator interface {
	ValidateToken(token string) (*Claims, error)
}

// validator checks PASETO v4 public tokens against the auth service's
// Ed25519 public key.
type validator struct {
	publicKey paseto.V4AsymmetricPublicKey
}

func newValidator(config Config) (Validator, error) {
	keyBytes, err := hex.DecodeString(config.PublicKey)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	if len(keyBytes) != 32 {
		return nil, ErrInvalidPublicKey
	}

	publicKey, err := paseto.NewV4AsymmetricPublicKeyFromBytes(keyBytes)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}

	return &validator{publicKey: publicKey}, nil
}

func (v *validator) ValidateToken(tokenString string) (*Claims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Public(v.publicKey, tokenString, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}

	role, _ := token.GetString("role")
	tokenType, _ := token.GetString("type")

	var permissions []string
	_ = token.Get("permissions", &permissions)

	iat, _ := token.GetIssuedAt()
	exp, _ := token.GetExpiration()
	nbf, _ := token.GetNotBefore()

	return &Claims{
		UserID:      subject,
		Role:        role,
		Permissions: permissions,
		Type:        tokenType,
		IssuedAt:    iat,
		ExpiresAt:   exp,
		NotBefore:   nbf,
		token:       token,
	}, nil
}
