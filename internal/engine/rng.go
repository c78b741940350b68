// Package engine provides the seeded, replayable random source that drives
// orb pulls and shop stocking.
package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Seeds identify one run's random stream. The server seed is ASCII and is
// never hex-decoded.
type Seeds struct {
	Server string `json:"server"`
	Client string `json:"client"`
}

// byteGenerator streams HMAC-SHA256(server, "client:nonce:round") output,
// 32 bytes per round.
type byteGenerator struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	round      uint64
	pos        int
	buffer     [32]byte
}

func newByteGenerator(seeds Seeds, nonce uint64, cursor uint64) *byteGenerator {
	bg := &byteGenerator{
		serverSeed: seeds.Server,
		clientSeed: seeds.Client,
		nonce:      nonce,
		round:      cursor / 32,
		pos:        int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

func (bg *byteGenerator) next() byte {
	if bg.pos >= 32 {
		bg.round++
		bg.pos = 0
		bg.generateRound()
	}
	b := bg.buffer[bg.pos]
	bg.pos++
	return b
}

func (bg *byteGenerator) nextFloat() float64 {
	return bytesToFloat([4]byte{bg.next(), bg.next(), bg.next(), bg.next()})
}

func (bg *byteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", bg.clientSeed, bg.nonce, bg.round)
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat maps 4 bytes to [0, 1) as sum(b[i] / 256^(i+1)).
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// Floats returns count floats starting at the given byte cursor.
func Floats(seeds Seeds, nonce uint64, cursor uint64, count int) []float64 {
	bg := newByteGenerator(seeds, nonce, cursor)
	floats := make([]float64, count)
	for i := range floats {
		floats[i] = bg.nextFloat()
	}
	return floats
}

// HashSeed returns the hex SHA-256 of a server seed, the value published
// before a run completes.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// NewServerSeed generates a 32-byte hex server seed using crypto/rand.
func NewServerSeed() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
