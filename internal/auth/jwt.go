package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const schemeBearerJWT = "bearer-jwt"

// BearerJWT accepts "Authorization: Bearer <jwt>" when the token is signed
// with HS256 using the configured secret and carries a valid "exp" claim.
type BearerJWT struct {
	secret []byte
	parser *jwt.Parser
}

// JWTOptions narrows which tokens BearerJWT accepts.
type JWTOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// NewBearerJWT returns a BearerJWT validator. An empty secret disables the scheme.
func NewBearerJWT(secret string, options JWTOptions) *BearerJWT {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}

	if issuer := strings.TrimSpace(options.Issuer); issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}

	if audience := strings.TrimSpace(options.Audience); audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(audience))
	}

	if options.Leeway > 0 {
		parserOptions = append(parserOptions, jwt.WithLeeway(options.Leeway))
	}

	return &BearerJWT{
		secret: []byte(secret),
		parser: jwt.NewParser(parserOptions...),
	}
}

// Name implements Validator.
func (*BearerJWT) Name() string { return schemeBearerJWT }

// IsValid implements Validator.
func (validator *BearerJWT) IsValid(r *http.Request) bool {
	if len(validator.secret) == 0 {
		return false
	}

	tokenString, ok := bearerToken(r)
	if !ok || strings.Count(tokenString, ".") != 2 {
		return false
	}

	token, parseErr := validator.parser.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) {
			return validator.secret, nil
		})

	return parseErr == nil && token.Valid
}
