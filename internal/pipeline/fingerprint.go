package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a posting across URL changes: two postings with
// the same canonical URL, title, and company are the same job.
func Fingerprint(canonicalURL, title, company string) string {
	h := sha256.Sum256([]byte(canonicalURL + "||" + title + "||" + company))
	return hex.EncodeToString(h[:])
}
