package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// KeyFiles names the PEM files for one key pair.
type KeyFiles struct {
	PrivatePath string
	PublicPath  string
}

// Keys holds the access and refresh key pairs.
type Keys struct {
	Access  *KeyPair
	Refresh *KeyPair
}

// ErrKeyNotFound is returned when a key file does not exist.
var ErrKeyNotFound = errors.New("key file not found")

// LoadKeyPair reads a private and public key from PEM files.
// The public key file may be omitted, in which case it is derived from the private key.
func LoadKeyPair(files KeyFiles) (*KeyPair, error) {
	privPEM, err := os.ReadFile(files.PrivatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, files.PrivatePath)
		}
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	priv, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", files.PrivatePath, err)
	}

	pub := &priv.PublicKey
	if files.PublicPath != "" {
		pubPEM, err := os.ReadFile(files.PublicPath)
		switch {
		case err == nil:
			pub, err = ParsePublicKeyPEM(pubPEM)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", files.PublicPath, err)
			}
			if pub.N.Cmp(priv.N) != 0 || pub.E != priv.E {
				return nil, fmt.Errorf("public key %s does not match private key", files.PublicPath)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading public key: %w", err)
		}
	}

	return &KeyPair{ID: KeyID(pub), Private: priv, Public: pub}, nil
}

// GenerateKeyPair creates a fresh RSA key pair.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return &KeyPair{ID: KeyID(&priv.PublicKey), Private: priv, Public: &priv.PublicKey}, nil
}

// WriteKeyPair persists a key pair as PKCS#1 private and PKIX public PEM files.
func WriteKeyPair(kp *KeyPair, files KeyFiles) error {
	if kp == nil || kp.Private == nil {
		return errors.New("writing key pair: no private key")
	}
	if err := os.MkdirAll(filepath.Dir(files.PrivatePath), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.Private),
	})
	if err := os.WriteFile(files.PrivatePath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	if files.PublicPath == "" {
		return nil
	}
	pubDER, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(files.PublicPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

// ParsePrivateKeyPEM accepts PKCS#1 and PKCS#8 encoded RSA private keys.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

// ParsePublicKeyPEM accepts PKIX and PKCS#1 encoded RSA public keys.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return key, nil
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return key, nil
}

// KeyID derives a stable key id from the public key.
func KeyID(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
