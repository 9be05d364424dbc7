package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// snapshot stands in for a VACUUM'd database file; real snapshots start with
// the SQLite magic string too.
func writeSnapshot(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "snapshot.db")
	content := "SQLite format 3\x00" + body
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func encryptSnapshot(t *testing.T, src, passphrase string) string {
	t.Helper()
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	dst := src + ".enc"
	if err := EncryptFile(src, dst, passphrase, salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return dst
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "wallets and streaks")
	enc := encryptSnapshot(t, src, "family passphrase")

	restored := filepath.Join(dir, "restored.db")
	if err := DecryptFile(enc, restored, "family passphrase"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	want, _ := os.ReadFile(src)
	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("restored snapshot differs from the original")
	}
}

func TestEncryptedHeaderCarriesSalt(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "ledger state")

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	enc := filepath.Join(dir, "snapshot.db.enc")
	if err := EncryptFile(src, enc, "family passphrase", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	data, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	// Header layout is [16-byte salt][12-byte nonce][ciphertext]; restore
	// reads the salt back out, so it must sit first and in the clear.
	if len(data) <= saltSize+nonceSize {
		t.Fatalf("encrypted size = %d, want header plus ciphertext", len(data))
	}
	if !bytes.Equal(data[:saltSize], salt) {
		t.Error("first 16 bytes are not the salt")
	}
	if plain, _ := os.ReadFile(src); bytes.Contains(data, plain) {
		t.Error("snapshot contents visible in the encrypted file")
	}
}

func TestEncryptNeverReusesNonce(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "ledger state")

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	var nonces [][]byte
	for i := 0; i < 2; i++ {
		enc := filepath.Join(dir, "out.enc")
		if err := EncryptFile(src, enc, "family passphrase", salt); err != nil {
			t.Fatalf("encrypt %d: %v", i, err)
		}
		data, _ := os.ReadFile(enc)
		nonces = append(nonces, append([]byte(nil), data[saltSize:saltSize+nonceSize]...))
	}
	if bytes.Equal(nonces[0], nonces[1]) {
		t.Error("same nonce across two encryptions under one salt")
	}
}

func TestFreshSaltPerSnapshot(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("first salt: %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("second salt: %v", err)
	}
	if len(a) != saltSize || len(b) != saltSize {
		t.Fatalf("salt lengths = %d, %d, want %d", len(a), len(b), saltSize)
	}
	if bytes.Equal(a, b) {
		t.Error("consecutive salts are identical")
	}
}

func TestDeriveKeyIsDeterministicPerSalt(t *testing.T) {
	salt := bytes.Repeat([]byte{0x5a}, saltSize)
	k1 := DeriveKey("family passphrase", salt)
	k2 := DeriveKey("family passphrase", salt)
	if len(k1) != keySize {
		t.Fatalf("key length = %d, want %d", len(k1), keySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt must derive the same key")
	}

	other := bytes.Repeat([]byte{0xa5}, saltSize)
	if bytes.Equal(k1, DeriveKey("family passphrase", other)) {
		t.Error("different salt must derive a different key")
	}
	if bytes.Equal(k1, DeriveKey("sibling passphrase", salt)) {
		t.Error("different passphrase must derive a different key")
	}
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "wallets and streaks")
	enc := encryptSnapshot(t, src, "family passphrase")

	err := DecryptFile(enc, filepath.Join(dir, "restored.db"), "guessed passphrase")
	if err == nil {
		t.Fatal("decrypt with wrong passphrase should fail")
	}
	if !strings.Contains(err.Error(), "decrypt") {
		t.Errorf("err = %v, want decrypt failure", err)
	}
}

func TestDecryptTamperedSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	src := writeSnapshot(t, dir, "wallets and streaks")
	enc := encryptSnapshot(t, src, "family passphrase")

	data, _ := os.ReadFile(enc)
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(enc, data, 0600); err != nil {
		t.Fatalf("rewrite tampered file: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "restored.db"), "family passphrase"); err == nil {
		t.Fatal("GCM must reject a tampered snapshot")
	}
}

func TestDecryptTruncatedFileFails(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "stub.enc")
	// Shorter than salt plus nonce, so there is no header to parse.
	if err := os.WriteFile(stub, make([]byte, saltSize+nonceSize-1), 0600); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	if err := DecryptFile(stub, filepath.Join(dir, "out.db"), "family passphrase"); err == nil {
		t.Fatal("truncated file should fail before decryption")
	}
}
