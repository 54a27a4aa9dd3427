package connector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// tokenParser accepts only unsigned tokens. Payloads are request bodies, not
// claim sets, so registered-claim checks are skipped.
var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodNone.Alg()}),
	jwt.WithJSONNumber(),
	jwt.WithoutClaimsValidation(),
)

// CreateUnsecuredToken wraps payload in an unsigned JWT ("alg":"none"). The
// signature segment is empty, so the token ends with a dot.
func CreateUnsecuredToken(payload any) (string, error) {
	claims, err := toClaims(payload)
	if err != nil {
		return "", err
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// DecodeUnsecuredToken decodes the payload of a token built by
// CreateUnsecuredToken into v. Tokens with any other alg are rejected.
func DecodeUnsecuredToken(token string, v any) error {
	parsed, err := tokenParser.Parse(token, func(*jwt.Token) (any, error) {
		return jwt.UnsafeAllowNoneSignatureType, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	raw, err := json.Marshal(parsed.Claims)
	if err != nil {
		return fmt.Errorf("marshal token payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal token payload: %w", err)
	}
	return nil
}

func toClaims(payload any) (jwt.MapClaims, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal token payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var claims jwt.MapClaims
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("token payload must be a JSON object: %w", err)
	}
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	return claims, nil
}
