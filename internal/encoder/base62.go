package encoder

import "math/rand/v2"

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the length of generated short codes
const DefaultLength = 6

// Generate returns a random base62 string of the given length.
// Each character is drawn independently and uniformly from the alphabet.
// Uniqueness is the caller's problem.
func Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.N(len(alphabet))]
	}
	return string(b)
}
