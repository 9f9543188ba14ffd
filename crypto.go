package czdb

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// magicFingerprint is the constant every valid header parameter block must
// carry once decrypted. It doubles as a cheap, fast-failing check that the
// caller's key is the right one: a wrong key decrypts the block into
// garbage that (overwhelmingly likely) does not start with this value.
const magicFingerprint uint32 = 0x42445a43 // "CZDB" read as a little-endian u32.

// paramBlockLen is the size, in bytes, of the encrypted header parameter
// block: two AES-128 blocks, decrypted independently in ECB mode (spec
// §4.1: "128-bit block, ECB-mode decryption of a few blocks is
// sufficient").
const paramBlockLen = 32

// paramBlock is the decrypted content of the header parameter block.
type paramBlock struct {
	fingerprint         uint32
	expectedFileSize    uint32
	recordSectionOrigin uint32
	expiryDate          uint32
}

// decodeKey base64-decodes key and validates it is a usable AES-128 key.
// AES-128 takes a 16-byte key; this is the only key length the on-disk
// format's cipher accepts.
func decodeKey(key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("bad base64: %v", err)}
	}
	if len(raw) != 16 {
		return nil, &InvalidKeyError{Reason: fmt.Sprintf("decoded key is %d bytes, want 16", len(raw))}
	}
	return raw, nil
}

// ecbDecrypt decrypts ciphertext with key using AES in ECB mode: the block
// cipher is applied independently to each 16-byte block, with no chaining
// and no padding removal (the caller already knows the exact plaintext
// length it expects).
//
// The standard library has no ECB mode helper by design — it is unsafe for
// general-purpose encryption, since identical plaintext blocks produce
// identical ciphertext blocks. It is used here only because the on-disk
// format mandates it; crypto/cipher's Block.Decrypt is the correct primitive
// to build it from by hand.
func ecbDecrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &InvalidKeyError{Reason: err.Error()}
	}

	bs := block.BlockSize()
	if len(ciphertext)%bs != 0 {
		return nil, &CorruptHeaderError{
			Reason: fmt.Sprintf("encrypted block length %d is not a multiple of %d", len(ciphertext), bs),
		}
	}

	plain := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += bs {
		block.Decrypt(plain[off:off+bs], ciphertext[off:off+bs])
	}

	return plain, nil
}

// parseParamBlock decodes a decrypted paramBlockLen-byte plaintext into a
// paramBlock and validates its fingerprint.
func parseParamBlock(plain []byte) (paramBlock, error) {
	if len(plain) < paramBlockLen {
		return paramBlock{}, &CorruptHeaderError{
			Reason: fmt.Sprintf("decrypted parameter block is %d bytes, want %d", len(plain), paramBlockLen),
		}
	}

	pb := paramBlock{
		fingerprint:         binary.LittleEndian.Uint32(plain[0:4]),
		expectedFileSize:    binary.LittleEndian.Uint32(plain[4:8]),
		recordSectionOrigin: binary.LittleEndian.Uint32(plain[8:12]),
		expiryDate:          binary.LittleEndian.Uint32(plain[12:16]),
	}

	if pb.fingerprint != magicFingerprint {
		return paramBlock{}, &InvalidKeyError{Reason: "fingerprint mismatch after decrypt"}
	}

	return pb, nil
}
