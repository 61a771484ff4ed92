// Package password hashes and verifies user passwords with scrypt.
//
// Hashes are self-describing strings:
//
//	$scrypt$ln=15,r=8,p=1$<base64 salt>$<base64 key>
//
// so a stored hash can always be verified with the parameters it was
// created with, even after the configured cost changes.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	algorithmID = "scrypt"

	minLogN       uint8 = 10
	maxLogN       uint8 = 20
	minSaltLength       = 16
	minKeyLength        = 16
)

var (
	ErrInvalidHash   = errors.New("invalid scrypt hash")
	ErrInvalidConfig = errors.New("invalid scrypt config")
)

// Config holds scrypt cost parameters. N is 1<<LogN.
type Config struct {
	LogN        uint8
	R           int
	Parallelism int
	SaltLength  int
	KeyLength   int
}

// DefaultConfig is the interactive-login recommendation from the scrypt paper.
func DefaultConfig() Config {
	return Config{
		LogN:        15,
		R:           8,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Scrypt is safe for concurrent use.
type Scrypt struct {
	config Config
}

type parsedHash struct {
	logN uint8
	r    int
	p    int
	salt []byte
	key  []byte
}

// New validates cfg and returns a hasher.
func New(cfg Config) (*Scrypt, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Scrypt{config: cfg}, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.LogN < minLogN || cfg.LogN > maxLogN:
		return fmt.Errorf("%w: ln must be in [%d, %d]", ErrInvalidConfig, minLogN, maxLogN)
	case cfg.R < 1:
		return fmt.Errorf("%w: r must be positive", ErrInvalidConfig)
	case cfg.Parallelism < 1:
		return fmt.Errorf("%w: p must be positive", ErrInvalidConfig)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key must be at least %d bytes", ErrInvalidConfig, minKeyLength)
	}
	return nil
}

// Hash derives a key from password with a fresh random salt and returns
// the encoded hash.
func (s *Scrypt) Hash(password string) (string, error) {
	salt := make([]byte, s.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(password), salt, 1<<s.config.LogN, s.config.R, s.config.Parallelism, s.config.KeyLength)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$%s$ln=%d,r=%d,p=%d$%s$%s",
		algorithmID,
		s.config.LogN,
		s.config.R,
		s.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The derived keys are
// compared in constant time.
func Verify(password, encoded string) (bool, error) {
	parsed, err := parse(encoded)
	if err != nil {
		return false, err
	}

	key, err := scrypt.Key([]byte(password), parsed.salt, 1<<parsed.logN, parsed.r, parsed.p, len(parsed.key))
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(key, parsed.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was made with weaker parameters
// than the hasher's current config.
func (s *Scrypt) NeedsUpgrade(encoded string) (bool, error) {
	parsed, err := parse(encoded)
	if err != nil {
		return false, err
	}

	return s.config.LogN > parsed.logN ||
		s.config.R > parsed.r ||
		s.config.Parallelism > parsed.p ||
		s.config.KeyLength != len(parsed.key), nil
}

func parse(encoded string) (*parsedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" {
		return nil, fmt.Errorf("%w: bad format", ErrInvalidHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}

	parsed := &parsedHash{}
	if err := parseParams(parts[2], parsed); err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(salt) < minSaltLength {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) < minKeyLength {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}

	parsed.salt = salt
	parsed.key = key
	return parsed, nil
}

func parseParams(part string, out *parsedHash) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: bad parameters", ErrInvalidHash)
	}

	var seenN, seenR, seenP bool
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}

		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}

		switch k {
		case "ln":
			if n < int(minLogN) || n > int(maxLogN) {
				return fmt.Errorf("%w: ln out of range", ErrInvalidHash)
			}
			out.logN = uint8(n)
			seenN = true
		case "r":
			out.r = n
			seenR = true
		case "p":
			out.p = n
			seenP = true
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, k)
		}
	}

	if !seenN || !seenR || !seenP {
		return fmt.Errorf("%w: missing parameter", ErrInvalidHash)
	}
	return nil
}
