package ledger

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"

	"github.com/ghalamif/AegisSDN/internal/errors"
)

// Signer produces ECDSA P-256 signatures over SHA-256 digests, encoded as
// hex ASN.1 DER.
type Signer struct {
	key *ecdsa.PrivateKey
}

func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, errors.New(errors.KindValidation, "ledger: nil signing key")
	}
	if key.Curve != elliptic.P256() {
		return nil, errors.Errorf(errors.KindValidation, "ledger: signing key must be P-256, got %s", key.Curve.Params().Name)
	}
	return &Signer{key: key}, nil
}

// LoadSigner reads a PEM encoded EC private key (SEC1 or PKCS#8) from path.
func LoadSigner(path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "ledger: read private key %s", path)
	}
	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, errors.Attr(err, "path", path)
	}
	return NewSigner(key)
}

func ParsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New(errors.KindValidation, "ledger: private key is not PEM encoded")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "ledger: parse private key")
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New(errors.KindValidation, "ledger: private key is not an EC key")
	}
	return key, nil
}

func (s *Signer) Sign(payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "ledger: sign")
	}
	return hex.EncodeToString(sig), nil
}

func (s *Signer) Public() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// VerifySignature checks a hex ASN.1 signature over payload.
func VerifySignature(pub *ecdsa.PublicKey, payload []byte, sigHex string) bool {
	if pub == nil {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(payload)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// EncodePublicKey renders pub as a PKIX "PUBLIC KEY" PEM block.
func EncodePublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "ledger: marshal public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func WritePublicKey(path string, pub *ecdsa.PublicKey) error {
	raw, err := EncodePublicKey(pub)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "ledger: write public key %s", path)
	}
	return nil
}

func LoadPublicKey(path string) (*ecdsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "ledger: read public key %s", path)
	}
	return ParsePublicKey(raw)
}

func ParsePublicKey(pemBytes []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New(errors.KindValidation, "ledger: public key is not PEM encoded")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "ledger: parse public key")
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, errors.New(errors.KindValidation, "ledger: public key is not a P-256 EC key")
	}
	return pub, nil
}

// GenerateKey creates a fresh P-256 signing key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "ledger: generate key")
	}
	return key, nil
}

// WritePrivateKey stores key as a SEC1 "EC PRIVATE KEY" PEM readable only by
// the owner. An existing file is never overwritten.
func WritePrivateKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return errors.Wrap(err, errors.KindValidation, "ledger: marshal private key")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(err, errors.KindConflict, "ledger: private key %s already exists", path)
		}
		return errors.Wrapf(err, errors.KindUnavailable, "ledger: create private key %s", path)
	}
	if err := pem.Encode(f, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}); err != nil {
		f.Close()
		return errors.Wrapf(err, errors.KindUnavailable, "ledger: write private key %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.KindUnavailable, "ledger: close private key %s", path)
	}
	return nil
}
