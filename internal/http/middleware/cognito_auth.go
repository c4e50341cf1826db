package middleware

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mandirseva/mandir-platform/internal/identity"
)

// CognitoConfig holds AWS Cognito configuration for JWT validation.
type CognitoConfig struct {
	Region     string
	UserPoolID string
	ClientID   string // App client ID for audience validation
}

// cognitoClaims represents the claims in a Cognito JWT.
type cognitoClaims struct {
	jwt.RegisteredClaims
	Email           string   `json:"email"`
	EmailVerified   bool     `json:"email_verified"`
	CognitoGroups   []string `json:"cognito:groups"`
	TokenUse        string   `json:"token_use"`
	ClientID        string   `json:"client_id"`
	Username        string   `json:"username"`
	CognitoUsername string   `json:"cognito:username"`
}

// jwksCache caches the JWKS keys from Cognito.
type jwksCache struct {
	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

var jwksCaches = make(map[string]*jwksCache)
var jwksCachesMu sync.RWMutex

// CognitoAuth validates JWTs issued by AWS Cognito and places an
// identity.Session in the request context. It accepts both ID tokens and
// access tokens.
func CognitoAuth(cfg CognitoConfig) func(http.Handler) http.Handler {
	if cfg.Region == "" || cfg.UserPoolID == "" {
		// Reject everything when auth is not configured rather than
		// silently letting requests through.
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"cognito auth not configured"}`, http.StatusUnauthorized)
			})
		}
	}

	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", issuer)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(auth, "Bearer ")

			token, _, err := jwt.NewParser().ParseUnverified(tokenString, &cognitoClaims{})
			if err != nil {
				http.Error(w, `{"error":"invalid token format"}`, http.StatusUnauthorized)
				return
			}

			kid, ok := token.Header["kid"].(string)
			if !ok {
				http.Error(w, `{"error":"missing key id in token"}`, http.StatusUnauthorized)
				return
			}

			pubKey, err := getPublicKey(jwksURL, kid, issuer)
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":"failed to get public key: %s"}`, err.Error()), http.StatusUnauthorized)
				return
			}

			claims := &cognitoClaims{}
			validatedToken, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return pubKey, nil
			}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

			if err != nil || !validatedToken.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			if cfg.ClientID != "" && claims.TokenUse == "id" {
				aud, _ := claims.GetAudience()
				validAud := false
				for _, a := range aud {
					if a == cfg.ClientID {
						validAud = true
						break
					}
				}
				if !validAud {
					http.Error(w, `{"error":"invalid audience"}`, http.StatusUnauthorized)
					return
				}
			}

			if claims.TokenUse == "access" && cfg.ClientID != "" {
				if claims.ClientID != cfg.ClientID {
					http.Error(w, `{"error":"invalid client_id"}`, http.StatusUnauthorized)
					return
				}
			}

			username := claims.CognitoUsername
			if username == "" {
				username = claims.Username
			}
			session := identity.NewSession(claims.Email, username, claims.CognitoGroups)
			next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), session)))
		})
	}
}

// RequireGroup gates a route on a Cognito group claim. It must run after
// CognitoAuth.
func RequireGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := identity.FromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}
			if !session.InGroup(group) {
				http.Error(w, `{"error":"insufficient permissions"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getPublicKey fetches and caches the public key from Cognito JWKS.
func getPublicKey(jwksURL, kid, issuer string) (*rsa.PublicKey, error) {
	jwksCachesMu.RLock()
	cache, exists := jwksCaches[issuer]
	jwksCachesMu.RUnlock()

	if exists {
		cache.mu.RLock()
		if time.Now().Before(cache.expires) {
			if key, ok := cache.keys[kid]; ok {
				cache.mu.RUnlock()
				return key, nil
			}
		}
		cache.mu.RUnlock()
	}

	keys, err := fetchJWKS(jwksURL)
	if err != nil {
		return nil, err
	}

	jwksCachesMu.Lock()
	jwksCaches[issuer] = &jwksCache{
		keys:    keys,
		expires: time.Now().Add(1 * time.Hour),
	}
	jwksCachesMu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	return key, nil
}

// jwksResponse represents the JWKS response from Cognito.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetchJWKS fetches the JWKS from the given URL.
func fetchJWKS(url string) (map[string]*rsa.PublicKey, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}

		pubKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pubKey
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid RSA keys found in JWKS")
	}

	return keys, nil
}

// parseRSAPublicKey parses RSA public key components from base64url-encoded strings.
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}
