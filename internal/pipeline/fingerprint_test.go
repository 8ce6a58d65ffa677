package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("https://acme.io/jobs/1", "Engineer", "Acme")
	b := Fingerprint("https://acme.io/jobs/1", "Engineer", "Acme")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// any component changing changes the fingerprint
	assert.NotEqual(t, a, Fingerprint("https://acme.io/jobs/2", "Engineer", "Acme"))
	assert.NotEqual(t, a, Fingerprint("https://acme.io/jobs/1", "Analyst", "Acme"))
	assert.NotEqual(t, a, Fingerprint("https://acme.io/jobs/1", "Engineer", "Other"))

	// the separator prevents boundary ambiguity
	assert.NotEqual(t,
		Fingerprint("u", "ab", "c"),
		Fingerprint("u", "a", "bc"),
	)
}
