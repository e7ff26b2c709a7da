package transport

import (
	"crypto/sha1"
	"log"

	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/crypto/pbkdf2"
)

// kdfSalt is the PBKDF2 salt used to stretch a pre-shared key into a
// session key for KCP-transport encryption, matching the constant the
// teacher derives its own session keys with.
const kdfSalt = "kcp-go"

// DeriveKey stretches a pre-shared secret into a 32-byte key suitable
// for any of the ciphers in cryptConstructors.
func DeriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), []byte(kdfSalt), 4096, 32, sha1.New)
}

type cryptMethod struct {
	keySize int // required key size in bytes; 0 means use the full derived key
	build   func(key []byte) (kcp.BlockCrypt, error)
}

// cryptConstructors maps a cipher name to its kcp.BlockCrypt constructor
// and required key size. Only meaningful for the kcp transport (§11.2);
// the tcp transport is always plaintext.
var cryptConstructors = map[string]cryptMethod{
	"none":        {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewNoneBlockCrypt(key) }},
	"xor":         {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSimpleXORBlockCrypt(key) }},
	"sm4":         {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSM4BlockCrypt(key) }},
	"tea":         {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTEABlockCrypt(key) }},
	"xtea":        {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewXTEABlockCrypt(key) }},
	"cast5":       {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewCast5BlockCrypt(key) }},
	"3des":        {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTripleDESBlockCrypt(key) }},
	"blowfish":    {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewBlowfishBlockCrypt(key) }},
	"twofish":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTwofishBlockCrypt(key) }},
	"salsa20":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSalsa20BlockCrypt(key) }},
	"aes-128":     {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"aes-192":     {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"aes-128-gcm": {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESGCMCrypt(key) }},
	"aes":         {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
}

// SelectBlockCrypt resolves a human-readable cipher name plus a derived
// key into a kcp.BlockCrypt, falling back to AES on an unknown name or a
// constructor failure. Returns the effective cipher name so callers can
// log what was actually selected.
func SelectBlockCrypt(name string, key []byte) (kcp.BlockCrypt, string) {
	m, ok := cryptConstructors[name]
	if !ok {
		block, err := kcp.NewAESBlockCrypt(key)
		if err != nil {
			log.Printf("transport: fallback aes cipher construction failed: %v", err)
		}
		return block, "aes"
	}

	effectiveKey := key
	if m.keySize > 0 && len(key) >= m.keySize {
		effectiveKey = key[:m.keySize]
	}
	block, err := m.build(effectiveKey)
	if err != nil {
		log.Printf("transport: cipher %q construction failed (%v), falling back to aes", name, err)
		block, _ = kcp.NewAESBlockCrypt(key)
		return block, "aes"
	}
	return block, name
}
