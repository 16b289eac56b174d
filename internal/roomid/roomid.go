// Package roomid generates sortable room identifiers: a UUIDv7 encoded
// as 26 characters of Crockford base32. Rooms created later sort later,
// which keeps room listings and archives in creation order.
package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies the random tail of an ID, injectable for
// deterministic tests
type RandSource interface {
	Intn(n int) int
}

// Generator creates room IDs with a configurable random source
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil source uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// New creates a room ID from the current time and crypto/rand
func New() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a room ID
func (g *Generator) Generate() string {
	return encodeBase32(g.uuidv7())
}

// uuidv7 builds a 128-bit UUIDv7: a 48-bit millisecond timestamp
// followed by random bits, with version and variant bits set
func (g *Generator) uuidv7() [16]byte {
	var id [16]byte

	now := time.Now().UnixMilli()
	id[0] = byte(now >> 40)
	id[1] = byte(now >> 32)
	id[2] = byte(now >> 24)
	id[3] = byte(now >> 16)
	id[4] = byte(now >> 8)
	id[5] = byte(now)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(id[6:]); err != nil {
			panic("failed to generate random bytes: " + err.Error())
		}
	}

	id[6] = (id[6] & 0x0f) | 0x70
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// encodeBase32 encodes 128 bits as 26 base32 characters, five bits per
// character, most significant bits first
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := range result {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// Validate checks that an ID is 26 valid base32 characters and does not
// overflow 128 bits
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("room ID must be exactly 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("room ID first character must be 0-7, got %c", id[0])
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
