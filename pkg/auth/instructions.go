package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide explains how to obtain a search API access token.
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "🔑 SEARCH API ACCESS TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Public archive mirrors accept anonymous requests. Hosted instances")
	fmt.Fprintln(w, "may require a bearer token, sent as 'Authorization: Bearer <token>'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in to the archive's web interface with your Reddit account")
	fmt.Fprintln(w, "2. Open the API or account page and request an access token")
	fmt.Fprintln(w, "3. Copy the whole token string (no quotes, no 'Bearer' prefix)")
	fmt.Fprintln(w, "4. Paste it at the prompt below")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 Tokens expire. Run 'psharvest auth login' again when requests")
	fmt.Fprintln(w, "   start failing with 401 or 403.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "⚠️  The token is stored in the system keychain when available,")
	fmt.Fprintln(w, "   otherwise in an encrypted file. For CI, set PSHARVEST_ACCESS_TOKEN.")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}
