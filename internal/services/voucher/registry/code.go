package registry

import (
	"fmt"
	"strings"
)

// Redemption codes are an 8-symbol Crockford base32 rendering of a 40-bit
// bijective scramble of the token id, printed as XXXX-XXXX.
const (
	codeBits     = 40
	codeMask     = uint64(1)<<codeBits - 1
	codeSymbols  = 8
	codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	// maxTokenID is the largest token id with a distinct redemption code.
	maxTokenID = codeMask
)

// RedemptionCode derives the human-enterable code for a token id. It is a
// bijection on [0, 2^40), so distinct token ids never share a code.
func RedemptionCode(tokenID uint64) string {
	x := scramble(tokenID & codeMask)
	var buf [codeSymbols + 1]byte
	pos := len(buf) - 1
	for i := 0; i < codeSymbols; i++ {
		if i == 4 {
			buf[pos] = '-'
			pos--
		}
		buf[pos] = codeAlphabet[x&0x1f]
		x >>= 5
		pos--
	}
	return string(buf[:])
}

// NormalizeCode canonicalizes user input: case-insensitive, hyphens and
// spaces ignored, and the Crockford aliases I/L → 1 and O → 0 applied.
func NormalizeCode(input string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(input)) {
		switch r {
		case '-', ' ':
			continue
		case 'I', 'L':
			r = '1'
		case 'O':
			r = '0'
		}
		if !strings.ContainsRune(codeAlphabet, r) {
			return "", fmt.Errorf("redemption code contains invalid symbol %q", r)
		}
		b.WriteRune(r)
	}
	raw := b.String()
	if len(raw) != codeSymbols {
		return "", fmt.Errorf("redemption code must have %d symbols", codeSymbols)
	}
	return raw[:4] + "-" + raw[4:], nil
}

// scramble is an invertible mix of 40-bit values: odd multipliers are
// bijective modulo 2^40 and so are right xor-shifts.
func scramble(x uint64) uint64 {
	x = (x * 0x9E3779B97F) & codeMask
	x ^= x >> 19
	x = (x * 0x7FEB352D) & codeMask
	x ^= x >> 13
	return x
}
