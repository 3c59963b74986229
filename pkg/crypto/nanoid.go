package crypto

import (
	"crypto/rand"
	"errors"
	"math/bits"
)

const (
	defaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultIDSize   = 22 // 22 * 6 = 132 bits of entropy
	maxAlphabetSize = 255
	minAlphabetSize = 8
)

var (
	ErrTooManyInputAlphabet = errors.New("must only provide 1 set of alphabet")
	ErrAlphabetTooLong      = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort     = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetNotASCII     = errors.New("alphabet must contain only ASCII characters")
)

// NanoIDGenerator produces URL-safe random identifiers. Token ids (jti)
// are drawn from it.
type NanoIDGenerator struct {
	alphabet string
	mask     byte
}

// maskFor returns the smallest all-ones bit mask covering every index
// of an alphabet of length n.
func maskFor(n int) byte {
	return byte(1<<bits.Len(uint(n-1)) - 1)
}

func NewNanoID(a ...string) (*NanoIDGenerator, error) {
	if len(a) > 1 {
		return nil, ErrTooManyInputAlphabet
	}

	alphabet := defaultAlphabet
	if len(a) == 1 && a[0] != "" {
		alphabet = a[0]
	}

	// Generate indexes by byte, so multi-byte runes are rejected
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}

	switch {
	case len(alphabet) > maxAlphabetSize:
		return nil, ErrAlphabetTooLong
	case len(alphabet) < minAlphabetSize:
		return nil, ErrAlphabetTooShort
	}

	return &NanoIDGenerator{alphabet: alphabet, mask: maskFor(len(alphabet))}, nil
}

// Generate returns an id of the given length, or defaultIDSize when omitted.
func (n *NanoIDGenerator) Generate(length ...int) (string, error) {
	size := defaultIDSize
	if len(length) > 0 && length[0] > 0 {
		size = length[0]
	}

	// oversample so one read usually fills the id despite rejected bytes
	step := (8*int(n.mask)*size)/(5*len(n.alphabet)) + 1
	buf := make([]byte, step)
	id := make([]byte, 0, size)

	for len(id) < size {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			idx := int(b & n.mask)
			if idx < len(n.alphabet) {
				id = append(id, n.alphabet[idx])
				if len(id) == size {
					break
				}
			}
		}
	}

	return string(id), nil
}
