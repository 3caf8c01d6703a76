package domain

import "strings"

// DeriveKey maps a raw asset name to the primary key of its metadata
// document. Every rune outside [A-Za-z0-9_-] becomes a single '_'.
// The result only contains key runes, so DeriveKey(DeriveKey(n)) == DeriveKey(n).
func DeriveKey(rawName string) string {
	var b strings.Builder
	b.Grow(len(rawName))
	for _, r := range rawName {
		if isKeyRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ProductID is the public identifier of a product: the raw name without its
// final extension, sanitized like a storage key.
//
//	ProductID("uno.jpg")   == "uno"
//	ProductID("a.b.c")     == "a_b"
//	ProductID(".hidden")   == "_hidden"
func ProductID(rawName string) string {
	return DeriveKey(StripExtension(rawName))
}

// StripExtension removes one trailing ".ext" where ext is non-empty and holds
// neither '/' nor '.'. A name whose only dot is the leading one is returned
// unchanged.
func StripExtension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || dot == len(name)-1 {
		return name
	}
	if strings.IndexByte(name[dot+1:], '/') >= 0 {
		return name
	}
	if name[dot-1] == '/' {
		return name
	}
	return name[:dot]
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}
