package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	controlTokenExpiry = 24 * time.Hour
	bcryptCost         = 12
	adminRateWindow    = 60 * time.Second
	maxAdminAttempts   = 10
)

// Auth mints and validates control tokens, and guards the admin API.
// Control tokens are HS256 JWTs bound to one session; whoever presents
// one (the creator's browser, or a phone that scanned the session QR)
// may drive that session's simulation.
type Auth struct {
	db           *DB
	jwtSecret    []byte
	adminKeyHash []byte // empty disables the admin API

	// Rate limiting for admin key attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. db may be nil; the secret is then
// per-process only.
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// SetAdminKey stores a bcrypt hash of the operator key. An empty key
// leaves the admin API disabled.
func (a *Auth) SetAdminKey(key string) error {
	if key == "" {
		a.adminKeyHash = nil
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return err
	}
	a.adminKeyHash = hash
	return nil
}

// CheckAdminKey verifies an operator key, rate-limited per IP.
func (a *Auth) CheckAdminKey(key, ip string) bool {
	if len(a.adminKeyHash) == 0 {
		return false
	}
	if !a.checkRate(ip) {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminKeyHash, []byte(key)) == nil
}

// ControlToken mints a token granting command rights over one session.
func (a *Auth) ControlToken(sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"exp": time.Now().Add(controlTokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateControlToken checks a token and that it was minted for the
// given session.
func (a *Auth) ValidateControlToken(tokenStr, sessionID string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token")
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid != sessionID {
		return fmt.Errorf("token not valid for this session")
	}
	return nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(adminRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxAdminAttempts
}
