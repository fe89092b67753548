package hashing

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Names of the built-in formats, as reported by their handlers.
const (
	NameArgon2       = "argon2"
	NameScrypt       = "scrypt"
	NamePBKDF2SHA1   = "pbkdf2_sha1"
	NamePBKDF2SHA256 = "pbkdf2_sha256"
	NamePBKDF2SHA512 = "pbkdf2_sha512"
	NameSHA1Crypt    = "sha1_crypt"
	NameHexMD5       = "hex_md5"
	NameHexSHA1      = "hex_sha1"
	NameHexSHA256    = "hex_sha256"
	NameHexSHA512    = "hex_sha512"
	NamePostgresMD5  = "postgres_md5"
	NamePlaintext    = "plaintext"

	NameLDAPHexMD5       = "ldap_hex_md5"
	NameLDAPHexSHA1      = "ldap_hex_sha1"
	NameRoundupPlaintext = "roundup_plaintext"
	NameLDAPPBKDF2SHA1   = "ldap_pbkdf2_sha1"
)

// HashInfo carries metadata parsed from a record without verifying it.
// Useful for auditing, migration tooling, or logging.
type HashInfo struct {
	// Name is the handler that parsed the record.
	Name string

	// Params holds the settings found in the record:
	//
	//   "ident"     → string (formats with several identifiers)
	//   "rounds"    → int
	//   "salt_size" → int (bytes, or characters for text salts)
	//   "algs"      → []string (SCRAM)
	//   "memory", "parallelism", "block_size", "key_len" → int
	//
	// "template" is true for records without a checksum.
	Params map[string]any
}

// Inspect parses record with h and returns its settings.
func Inspect(h *handler.Handler, record string) (HashInfo, error) {
	r, err := h.Parse(record)
	if err != nil {
		return HashInfo{}, err
	}
	params := map[string]any{"template": !r.HasChecksum()}
	if r.Ident() != "" {
		params["ident"] = r.Ident()
	}
	if r.HasRounds() {
		params["rounds"] = r.Rounds()
	}
	if r.HasSalt() {
		params["salt_size"] = len(r.Salt())
		if sp := h.SaltPolicy(); sp != nil && !sp.Raw {
			params["salt_size"] = len([]rune(r.SaltString()))
		}
	}
	for _, key := range []string{"algs", "memory", "parallelism", "block_size", "key_len"} {
		if v, ok := r.Extra(key); ok {
			params[key] = v
		}
	}
	return HashInfo{Name: h.Name(), Params: params}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared helpers
// ──────────────────────────────────────────────────────────────────────────────

// intSetting reads an integer format setting.  Strings are accepted so
// values from [handler.ParseConfigOptions] work unchanged.
func intSetting(m map[string]any, key string) (int, bool, error) {
	v, ok := m[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case uint32:
		return int(n), true, nil
	case uint8:
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, fmt.Errorf("%w: %s must be an integer, got %q", mcf.ErrInvalidOption, key, n)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%w: %s must be an integer, got %T", mcf.ErrTypeMismatch, key, v)
	}
}

// intSettings resolves the integer settings keys of a record: explicit
// values from extra, defaults from the configuration.  Unknown keys fail
// with [mcf.ErrTypeMismatch].
func intSettings(cfg *handler.Config, extra map[string]any, keys ...string) (map[string]int, error) {
	for key := range extra {
		if !slices.Contains(keys, key) {
			return nil, fmt.Errorf("%w: %s does not support %s", mcf.ErrTypeMismatch, cfg.Name, key)
		}
	}
	out := make(map[string]int, len(keys))
	for _, key := range keys {
		n, ok, err := intSetting(extra, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			if n, ok, err = intSetting(cfg.Extra, key); err != nil || !ok {
				return nil, fmt.Errorf("%w: %s has no default %s", mcf.ErrInvalidOption, cfg.Name, key)
			}
		}
		out[key] = n
	}
	return out, nil
}

func extraInt(r *handler.Record, key string) int {
	v, _ := r.Extra(key)
	n, _ := v.(int)
	return n
}

func configInt(cfg *handler.Config, key string) int {
	n, _, _ := intSetting(cfg.Extra, key)
	return n
}
