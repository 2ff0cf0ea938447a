package solana

import (
	"net/url"
	"strings"
)

// BuildPayURL assembles a Solana Pay request URI:
//
//	solana:<seller>?amount=<decimal>&reference=<id>&label=..&message=..
//
// Parameter order and '+' escaping of spaces are part of the wire contract
// with payment-initiating clients, so the query string is built by hand
// (url.Values.Encode would sort the keys).
func BuildPayURL(sellerWallet, amount, reference, label, message string) string {
	var b strings.Builder
	b.WriteString("solana:")
	b.WriteString(sellerWallet)
	b.WriteString("?amount=")
	b.WriteString(url.QueryEscape(amount))
	b.WriteString("&reference=")
	b.WriteString(url.QueryEscape(reference))
	b.WriteString("&label=")
	b.WriteString(url.QueryEscape(label))
	b.WriteString("&message=")
	b.WriteString(url.QueryEscape(message))
	return b.String()
}
