package address

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Alphabet is the Bitcoin base-58 alphabet used for Solana keys and signatures.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	// ErrInvalidInput is the category shared by every malformed textual input.
	ErrInvalidInput = errors.New("invalid input")

	ErrInvalidLength    = fmt.Errorf("%w: invalid length", ErrInvalidInput)
	ErrInvalidCharacter = fmt.Errorf("%w: invalid character", ErrInvalidInput)
)

// Encode returns the base-58 text form of a public key.
func Encode(key solana.PublicKey) string {
	return base58.Encode(key[:])
}

// Decode parses a base-58 public key. The decoded form must be exactly 32 bytes.
func Decode(text string) (solana.PublicKey, error) {
	raw, err := decodeFixed(text, solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// DecodeSignature parses a base-58 transaction signature (64 bytes).
func DecodeSignature(text string) (solana.Signature, error) {
	raw, err := decodeFixed(text, solana.SignatureLength)
	if err != nil {
		return solana.Signature{}, err
	}
	return solana.SignatureFromBytes(raw), nil
}

// MustDecode is Decode for compile-time constants.
func MustDecode(text string) solana.PublicKey {
	key, err := Decode(text)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeFixed(text string, want int) ([]byte, error) {
	text = strings.TrimSpace(text)
	if i := strings.IndexFunc(text, notInAlphabet); i >= 0 {
		r, _ := utf8.DecodeRuneInString(text[i:])
		return nil, fmt.Errorf("%w %q at position %d", ErrInvalidCharacter, r, i)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: expected %d bytes, got 0", ErrInvalidLength, want)
	}

	raw, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidLength, want, len(raw))
	}
	return raw, nil
}

func notInAlphabet(r rune) bool {
	return !strings.ContainsRune(Alphabet, r)
}
