package xclient

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer adds OAuth 1.0a HMAC-SHA1 user-context Authorization headers.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
	nowFn          func() time.Time
	nonceFn        func() string
}

func NewSigner(ck, cs, at, as string) *Signer {
	return &Signer{
		ConsumerKey:    ck,
		ConsumerSecret: cs,
		AccessToken:    at,
		AccessSecret:   as,
		nowFn:          time.Now,
		nonceFn:        func() string { return strconv.FormatUint(rand.Uint64(), 36) },
	}
}

// Sign signs req. The request's query parameters and any extra form params are
// included in the signature base.
func (s *Signer) Sign(req *http.Request, form map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.nonceFn(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.nowFn().Unix(), 10),
		"oauth_token":            s.AccessToken,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = s.signature(req.Method, req.URL, oauth, form)

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", rfc3986(k), rfc3986(oauth[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(parts, ", "))
	req.Header.Set("Accept", "application/json")
}

func (s *Signer) signature(method string, u *url.URL, oauth, form map[string]string) string {
	type pair struct{ k, v string }
	var params []pair
	for k, v := range oauth {
		params = append(params, pair{rfc3986(k), rfc3986(v)})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			params = append(params, pair{rfc3986(k), rfc3986(v)})
		}
	}
	for k, v := range form {
		params = append(params, pair{rfc3986(k), rfc3986(v)})
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].k == params[j].k {
			return params[i].v < params[j].v
		}
		return params[i].k < params[j].k
	})
	enc := make([]string, 0, len(params))
	for _, p := range params {
		enc = append(enc, p.k+"="+p.v)
	}
	baseURL := u.Scheme + "://" + u.Host + u.Path
	base := strings.ToUpper(method) + "&" + rfc3986(baseURL) + "&" + rfc3986(strings.Join(enc, "&"))
	key := rfc3986(s.ConsumerSecret) + "&" + rfc3986(s.AccessSecret)
	mac := hmac.New(sha1.New, []byte(key))
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// rfc3986 percent-encodes per OAuth 1.0a.
func rfc3986(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(url.QueryEscape(s), "+", "%20"), "*", "%2A")
}
