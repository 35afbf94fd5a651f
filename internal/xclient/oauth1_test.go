package xclient

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Reference values from X's "Creating a signature" documentation.
func TestSignatureMatchesReference(t *testing.T) {
	s := NewSigner("xvz1evFS4wEEPTGEFPHBog", "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		"370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb", "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE")
	s.nowFn = func() time.Time { return time.Unix(1318622958, 0) }
	s.nonceFn = func() string { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg" }

	req, _ := http.NewRequest(http.MethodPost, "https://api.twitter.com/1.1/statuses/update.json?include_entities=true", nil)
	s.Sign(req, map[string]string{"status": "Hello Ladies + Gentlemen, a signed OAuth request!"})

	auth := req.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "OAuth "))
	assert.Contains(t, auth, `oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D"`)
	assert.Contains(t, auth, `oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog"`)
}

func TestRFC3986(t *testing.T) {
	assert.Equal(t, "Ladies%20%2B%20Gentlemen", rfc3986("Ladies + Gentlemen"))
	assert.Equal(t, "a%2Ab~c", rfc3986("a*b~c"))
}
