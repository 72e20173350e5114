// Package codec turns mailbox UIDs into opaque tokens for public URLs.
//
// Tokens are hashids of the UID plus a short HMAC tag keyed by the process
// salt, so a token minted in another process, or edited by hand, does not
// decode to a UID.
package codec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/speps/go-hashids/v2"
)

// ErrInvalidToken is returned for tokens this process did not mint
var ErrInvalidToken = errors.New("invalid message identifier")

const minLength = 8

// Codec encodes and decodes UIDs under one salt. Safe for concurrent use.
type Codec struct {
	h   *hashids.HashID
	key []byte
}

// New creates a codec for the given salt
func New(salt string) (*Codec, error) {
	if salt == "" {
		return nil, errors.New("codec salt must not be empty")
	}

	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = minLength

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("failed to create hashids: %w", err)
	}

	return &Codec{h: h, key: []byte(salt)}, nil
}

// NewRandom creates a codec with a fresh random salt
func NewRandom() (*Codec, error) {
	salt, err := RandomSalt()
	if err != nil {
		return nil, err
	}
	return New(salt)
}

// RandomSalt returns 32 hex characters from crypto/rand
func RandomSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Encode returns the token for uid, or "" if uid is not a valid UID.
func (c *Codec) Encode(uid int64) string {
	if uid < 0 || uid > math.MaxUint32 {
		return ""
	}

	token, err := c.h.Encode([]int{int(uid), c.tag(uint32(uid))})
	if err != nil {
		return ""
	}
	return token
}

// Decode returns the UID behind token, or ErrInvalidToken.
func (c *Codec) Decode(token string) (uid uint32, err error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	defer func() {
		if r := recover(); r != nil {
			uid, err = 0, ErrInvalidToken
		}
	}()

	nums, err := c.h.DecodeWithError(token)
	if err != nil || len(nums) != 2 {
		return 0, ErrInvalidToken
	}
	if nums[0] < 0 || int64(nums[0]) > math.MaxUint32 {
		return 0, ErrInvalidToken
	}

	uid = uint32(nums[0])
	if nums[1] != c.tag(uid) {
		return 0, ErrInvalidToken
	}
	return uid, nil
}

// tag is a 16-bit HMAC of the uid
func (c *Codec) tag(uid uint32) int {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uid)

	mac := hmac.New(sha256.New, c.key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	return int(binary.BigEndian.Uint16(sum[:2]))
}
