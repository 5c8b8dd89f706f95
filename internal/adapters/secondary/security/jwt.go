package security

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

const DefaultIssuer = "cenackle-identity"

// ViewerClaims : claims émis par le service d'identité.
type ViewerClaims struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator vérifie les access tokens RS256 avec la clé publique seule.
type JWTValidator struct {
	publicKey *rsa.PublicKey
	issuer    string
}

// NewJWTValidator charge la clé publique PEM. issuer vide = pas de vérification d'émetteur.
func NewJWTValidator(publicKeyPEM []byte, issuer string) (*JWTValidator, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &JWTValidator{publicKey: pubKey, issuer: issuer}, nil
}

var _ ports.TokenValidator = (*JWTValidator)(nil)

// Validate vérifie la signature et retourne le viewer (Subject = id).
func (j *JWTValidator) Validate(tokenString string) (domain.Viewer, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Refuse "none" et HS256 signé avec la clé publique
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.publicKey, nil
	}, opts...)
	if err != nil {
		return domain.Viewer{}, err
	}

	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid {
		return domain.Viewer{}, errors.New("invalid token claims")
	}

	id := claims.Subject
	if id == "" {
		id = claims.UserID
	}
	if id == "" {
		return domain.Viewer{}, errors.New("token has no subject")
	}

	name := claims.Name
	if name == "" {
		name = claims.Username
	}
	return domain.Viewer{ID: id, Name: name, PhotoURL: claims.Picture}, nil
}
