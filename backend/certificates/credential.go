package certificates

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Tier is the certificate class, deciding the visual template and the
// code embedded in the credential id.
type Tier string

const (
	TierBasic   Tier = "BASIC"
	TierPremium Tier = "PREMIUM"
)

var tierCodes = map[Tier]string{
	TierBasic:   "BAS",
	TierPremium: "PRM",
}

// Valid reports whether the tier is one of the known classes.
func (t Tier) Valid() bool {
	_, ok := tierCodes[t]
	return ok
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const tokenLength = 6

// newCredentialID builds a candidate id PREFIX-TIERCODE-YEAR-RANDOM6,
// e.g. ELY-PRM-2026-7GQ2MB. Uniqueness is checked by the caller.
func newCredentialID(prefix string, tier Tier, now time.Time) (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}

	return fmt.Sprintf("%s-%s-%d-%s", prefix, tierCodes[tier], now.Year(), string(buf)), nil
}

// VerificationURL derives the publicly shareable link for a credential id.
func VerificationURL(baseURL, credentialID string) string {
	return fmt.Sprintf("%s/verify/%s", baseURL, credentialID)
}
