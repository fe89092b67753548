// Package codec holds the text encodings used for salts and digests inside
// hash records.
//
// Three encodings are in use across the formats of this module:
//
//   - [AdaptedBase64]: standard base64 with '.' in place of '+' and no
//     padding.  Used by the PBKDF2 and scrypt formats.
//   - [URLBase64]: base64url without padding.  Used by SCRAM records.
//   - hash64 ([EncodeHash64]): the traditional crypt(3) alphabet with
//     little-endian bit packing.  Used by sha1_crypt.
package codec

import (
	"encoding/base64"
	"fmt"
)

// Codec encodes raw bytes for embedding in a record.  *base64.Encoding
// satisfies it.
type Codec interface {
	EncodeToString(src []byte) string
	DecodeString(s string) ([]byte, error)
}

// Character sets shared by salt and checksum validation.
const (
	// Hash64Chars is the crypt(3) alphabet in value order.
	Hash64Chars = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// AdaptedBase64Chars is the alphabet of [AdaptedBase64] in value order.
	AdaptedBase64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./"

	// LowerHexChars is the lowercase hexadecimal alphabet.
	LowerHexChars = "0123456789abcdef"
)

// The base64 codecs decode strictly: non-zero trailing bits are rejected so
// that every accepted string re-encodes to itself.
var (
	// AdaptedBase64 is base64 with '.' replacing '+', without padding.
	AdaptedBase64 Codec = base64.NewEncoding(AdaptedBase64Chars).WithPadding(base64.NoPadding).Strict()

	// URLBase64 is base64url without padding.
	URLBase64 Codec = base64.RawURLEncoding.Strict()

	// StdBase64 is standard base64 without padding, as used by PHC strings.
	StdBase64 Codec = base64.RawStdEncoding.Strict()
)

var hash64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(Hash64Chars); i++ {
		idx[Hash64Chars[i]] = int8(i)
	}
	return idx
}()

// EncodeHash64 encodes src with the crypt(3) alphabet, packing each group of
// three bytes little-endian into four characters.  A trailing group of one or
// two bytes yields two or three characters.
func EncodeHash64(src []byte) string {
	out := make([]byte, 0, (len(src)*4+2)/3)
	for i := 0; i < len(src); i += 3 {
		var v uint32
		n := len(src) - i
		if n > 3 {
			n = 3
		}
		for j := 0; j < n; j++ {
			v |= uint32(src[i+j]) << (8 * j)
		}
		for j := 0; j <= n; j++ {
			out = append(out, Hash64Chars[v&0x3f])
			v >>= 6
		}
	}
	return string(out)
}

// DecodeHash64 is the inverse of [EncodeHash64].  It rejects characters
// outside the alphabet, impossible lengths, and non-zero padding bits.
func DecodeHash64(s string) ([]byte, error) {
	if len(s)%4 == 1 {
		return nil, fmt.Errorf("codec: invalid hash64 length %d", len(s))
	}
	out := make([]byte, 0, len(s)*3/4)
	for i := 0; i < len(s); i += 4 {
		n := len(s) - i
		if n > 4 {
			n = 4
		}
		var v uint32
		for j := 0; j < n; j++ {
			d := hash64Index[s[i+j]]
			if d < 0 {
				return nil, fmt.Errorf("codec: invalid hash64 character %q", s[i+j])
			}
			v |= uint32(d) << (6 * j)
		}
		for j := 0; j < n-1; j++ {
			out = append(out, byte(v))
			v >>= 8
		}
		if v != 0 {
			return nil, fmt.Errorf("codec: non-zero padding bits in hash64 group %d", i/4)
		}
	}
	return out, nil
}

// EncodeTransposedHash64 reorders src by offsets before hash64 encoding.
func EncodeTransposedHash64(src []byte, offsets []int) string {
	buf := make([]byte, len(offsets))
	for i, off := range offsets {
		buf[i] = src[off]
	}
	return EncodeHash64(buf)
}
