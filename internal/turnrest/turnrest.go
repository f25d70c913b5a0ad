// Package turnrest mints coturn-compatible short-lived TURN credentials
// (draft-uberti-behave-turn-rest) so browsers never see the shared secret.
//
//	username   = <unix_expiry>:<prefix>:<session_id>
//	credential = base64(hmac_sha1(shared_secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
)

var (
	ErrMissingSecret  = errors.New("turnrest: shared secret is required")
	ErrInvalidTTL     = errors.New("turnrest: TTLSeconds must be > 0")
	ErrInvalidPrefix  = errors.New("turnrest: username prefix must be non-empty and must not contain ':'")
	ErrInvalidSession = errors.New("turnrest: session id must be non-empty and must not contain ':'")
)

type GeneratorConfig struct {
	SharedSecret   string
	TTLSeconds     int64
	UsernamePrefix string

	// Now defaults to time.Now.
	Now func() time.Time
	// SessionID defaults to random UUIDs.
	SessionID func() string
}

type Generator struct {
	sharedSecret   []byte
	ttlSeconds     int64
	usernamePrefix string
	now            func() time.Time
	sessionID      func() string
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTLSeconds <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.UsernamePrefix == "" || strings.Contains(cfg.UsernamePrefix, ":") {
		return nil, ErrInvalidPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionID == nil {
		cfg.SessionID = uuid.NewString
	}
	return &Generator{
		sharedSecret:   []byte(cfg.SharedSecret),
		ttlSeconds:     cfg.TTLSeconds,
		usernamePrefix: cfg.UsernamePrefix,
		now:            cfg.Now,
		sessionID:      cfg.SessionID,
	}, nil
}

type Credentials struct {
	Username   string
	Credential string
	ExpiresAt  time.Time
}

func (g *Generator) Generate(sessionID string) (Credentials, error) {
	if sessionID == "" || strings.Contains(sessionID, ":") {
		return Credentials{}, ErrInvalidSession
	}
	expiry := g.now().UTC().Unix() + g.ttlSeconds
	username := fmt.Sprintf("%d:%s:%s", expiry, g.usernamePrefix, sessionID)
	return Credentials{
		Username:   username,
		Credential: sign(g.sharedSecret, username),
		ExpiresAt:  time.Unix(expiry, 0).UTC(),
	}, nil
}

// ICEServers returns a copy of servers where every server with a TURN URL
// carries one freshly minted credential pair. STUN-only servers are untouched.
func (g *Generator) ICEServers(servers []webrtc.ICEServer) ([]webrtc.ICEServer, Credentials, error) {
	creds, err := g.Generate(g.sessionID())
	if err != nil {
		return nil, Credentials{}, err
	}
	out := lo.Map(servers, func(s webrtc.ICEServer, _ int) webrtc.ICEServer {
		if HasTURNURL(s) {
			s.Username = creds.Username
			s.Credential = creds.Credential
		}
		return s
	})
	return out, creds, nil
}

// HasTURNURL reports whether any of the server's URLs uses the turn: or turns:
// scheme.
func HasTURNURL(s webrtc.ICEServer) bool {
	return lo.SomeBy(s.URLs, func(raw string) bool {
		url := strings.ToLower(strings.TrimSpace(raw))
		return strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:")
	})
}

func sign(sharedSecret []byte, username string) string {
	mac := hmac.New(sha1.New, sharedSecret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
