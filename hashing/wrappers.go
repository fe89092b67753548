package hashing

import "github.com/hasbyte1/go-crypt-handlers/handler"

// Prefix-rewriting variants of the built-in formats.  Each resolves the
// handler it wraps through r on first use, so the wrapped handler may be
// registered after the wrapper.

// LDAPHexMD5 wraps hex_md5 records as "{MD5}<hex>".
func LDAPHexMD5(r handler.Resolver) *handler.PrefixWrapper {
	return handler.NewLazyPrefixWrapper(NameLDAPHexMD5, r, NameHexMD5, "{MD5}", "")
}

// LDAPHexSHA1 wraps hex_sha1 records as "{SHA}<hex>".
func LDAPHexSHA1(r handler.Resolver) *handler.PrefixWrapper {
	return handler.NewLazyPrefixWrapper(NameLDAPHexSHA1, r, NameHexSHA1, "{SHA}", "")
}

// RoundupPlaintext wraps plaintext records as "{plaintext}<secret>".
func RoundupPlaintext(r handler.Resolver) *handler.PrefixWrapper {
	return handler.NewLazyPrefixWrapper(NameRoundupPlaintext, r, NamePlaintext, "{plaintext}", "")
}

// LDAPPBKDF2SHA1 rewrites "$pbkdf2$" records as "{PBKDF2}<rounds>$...".
func LDAPPBKDF2SHA1(r handler.Resolver) *handler.PrefixWrapper {
	return handler.NewLazyPrefixWrapper(NameLDAPPBKDF2SHA1, r, NamePBKDF2SHA1, "{PBKDF2}", "$pbkdf2$")
}
