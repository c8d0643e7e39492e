package token

// noopValidator accepts any token and returns admin claims. For tests only.
type noopValidator struct{}

func newNoopValidator() Validator {
	return &noopValidator{}
}

func (v *noopValidator) ValidateToken(string) (*Claims, error) {
	return &Claims{
		UserID:      "test-user",
		Role:        "admin",
		Permissions: []string{WildcardPermission},
		Type:        "access",
	}, nil
}
