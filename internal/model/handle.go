package model

import (
	"strings"
	"unicode"
)

// HandleSeparator precedes each letter that was uppercase in a chat code.
const HandleSeparator = '|'

// JIDFromCode converts a chat code such as "JohnSmith" into the bare JID the
// chat network uses ("|john|smith@domain"). An empty domain yields just the
// local part.
func JIDFromCode(code, domain string) string {
	var b strings.Builder
	b.Grow(len(code) + len(domain) + 4)
	for _, r := range code {
		if unicode.IsUpper(r) {
			b.WriteRune(HandleSeparator)
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	if domain != "" {
		b.WriteByte('@')
		b.WriteString(domain)
	}
	return b.String()
}

// CodeFromJID is the inverse of JIDFromCode. Any domain and resource are
// dropped. A separator not followed by a lowercase letter is kept as is.
func CodeFromJID(jid string) string {
	local := BareJID(jid)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	runes := []rune(local)
	var b strings.Builder
	b.Grow(len(local))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == HandleSeparator && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BareJID strips the resource from a full JID.
func BareJID(jid string) string {
	if slash := strings.IndexByte(jid, '/'); slash >= 0 {
		return jid[:slash]
	}
	return jid
}

// DomainOf returns the domain part of a JID, or "" when there is none.
func DomainOf(jid string) string {
	bare := BareJID(jid)
	if at := strings.LastIndexByte(bare, '@'); at >= 0 {
		return bare[at+1:]
	}
	return ""
}
