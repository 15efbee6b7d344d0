package ledger

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/AegisSDN/internal/errors"
)

func writePEM(t *testing.T, typ string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}), 0o600); err != nil {
		t.Fatalf("write pem: %v", err)
	}
	return path
}

func wantKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := errors.GetKind(err); got != kind {
		t.Fatalf("expected %v error, got %v (%v)", kind, got, err)
	}
}

func TestLoadSignerSEC1AndPKCS8(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sec1, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal sec1: %v", err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}

	for name, path := range map[string]string{
		"sec1":  writePEM(t, "EC PRIVATE KEY", sec1),
		"pkcs8": writePEM(t, "PRIVATE KEY", pkcs8),
	} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadSigner(path)
			if err != nil {
				t.Fatalf("load signer: %v", err)
			}
			if !s.Public().Equal(&key.PublicKey) {
				t.Fatalf("loaded key does not match")
			}

			sig, err := s.Sign([]byte("payload"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if !VerifySignature(&key.PublicKey, []byte("payload"), sig) {
				t.Fatalf("signature does not verify")
			}
			if VerifySignature(&key.PublicKey, []byte("other"), sig) {
				t.Fatalf("signature verified over different payload")
			}
		})
	}
}

func TestLoadSignerRejectsUnusableKeys(t *testing.T) {
	_, err := LoadSigner(filepath.Join(t.TempDir(), "missing.pem"))
	wantKind(t, err, errors.KindValidation)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	_, err = LoadSigner(garbage)
	wantKind(t, err, errors.KindValidation)

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate p384: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(p384)
	if err != nil {
		t.Fatalf("marshal p384: %v", err)
	}
	_, err = LoadSigner(writePEM(t, "EC PRIVATE KEY", der))
	wantKind(t, err, errors.KindValidation)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	s := newTestSigner(t)
	path := filepath.Join(t.TempDir(), "public.pem")
	if err := WritePublicKey(path, s.Public()); err != nil {
		t.Fatalf("write public key: %v", err)
	}

	pub, err := LoadPublicKey(path)
	if err != nil {
		t.Fatalf("load public key: %v", err)
	}
	if !pub.Equal(s.Public()) {
		t.Fatalf("public key changed across round trip")
	}

	if _, err := ParsePublicKey([]byte("-----BEGIN NOTHING-----")); err == nil {
		t.Fatalf("expected parse error for junk PEM")
	}
}

func TestWritePrivateKeyRefusesOverwrite(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	if err := WritePrivateKey(path, key); err != nil {
		t.Fatalf("write private key: %v", err)
	}

	signer, err := LoadSigner(path)
	if err != nil {
		t.Fatalf("load written key: %v", err)
	}
	if !signer.Public().Equal(&key.PublicKey) {
		t.Fatalf("written key does not load back")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}

	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate second key: %v", err)
	}
	wantKind(t, WritePrivateKey(path, other), errors.KindConflict)
}
