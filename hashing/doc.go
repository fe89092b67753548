// Package hashing provides the built-in password hash formats and a
// registry that finds the right one for a stored record.
//
// # Architecture
//
// Every format is a [handler.Handler] (or a [handler.PrefixWrapper] around
// one) built from a Default*Config value plus a format implementation:
//
//   - [Argon2]: PHC "$argon2i$" / "$argon2id$" records (recommended for new systems)
//   - [Scrypt]: "$scrypt$ln=…,r=…,p=…$" records
//   - [PBKDF2SHA1], [PBKDF2SHA256], [PBKDF2SHA512]: adapted-base64 PBKDF2 records
//   - [SHA1Crypt]: NetBSD's "$sha1$" HMAC-SHA1 chain
//   - [HexMD5], [HexSHA1], [HexSHA256], [HexSHA512]: bare hex digests (legacy only)
//   - [PostgresMD5]: "md5<hex>" salted with the user name
//   - [Plaintext]: the secret itself, decoded from its declared encoding
//
// All implement [handler.PasswordHash], so callers can depend on the
// interface rather than a concrete format.  The SCRAM format lives in its
// own package.
//
// The [Registry] is a named handler set.  It does not pick a format to hash
// with; it looks handlers up by name and identifies which one produced a
// record.
//
// # Quick start
//
//	reg, err := hashing.NewDefaultRegistry(logger)
//	if err != nil { log.Fatal(err) }
//
//	h, _ := reg.Lookup(hashing.NameArgon2)
//	record, _ := h.Hash("my-secret-password")
//	ok, _ := reg.VerifyIdentified("my-secret-password", record) // true
//
// # Security defaults
//
//   - Argon2id: m=64 MiB, t=3 iterations, p=2 threads, 32-byte key.
//     Exceeds OWASP ASVS Level 2 (m≥19 MiB, t≥2, p≥1).
//   - PBKDF2: 29000 rounds of SHA-256, 25000 of SHA-512, 131000 of SHA-1.
//   - scrypt: N=2^16, r=8, p=1.
//
// # Format upgrades
//
// Call NeedsUpdate on every successful login.  It returns true when the
// stored record falls outside the handler's desired rounds or uses other
// parameters than the current configuration.  Re-hash and persist
// immediately:
//
//	ok, _ := reg.VerifyIdentified(password, stored)
//	if ok {
//	    if needs, _ := current.NeedsUpdate(stored); needs {
//	        record, _ := current.Hash(password)
//	        persist(userID, record)
//	    }
//	}
//
// Records of another format always need re-hashing; identify them with
// [Registry.Identify] first.
package hashing
