package local

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yi-nology/survey_vault/pkg/storage/sas"
)

const (
	signedVersion     = "1"
	signedPermissions = "r"

	resourceBlob      = "b"
	resourceContainer = "c"

	defaultTokenTTL = time.Hour

	// clockSkew is how far in the future a token's start time may lie.
	clockSkew = 30 * time.Second
)

// signer produces SAS-style query strings:
// sv (version), sp (permissions), sr (b=blob, c=container), st/se (unix
// start/expiry) and sig, an HMAC-SHA256 over those fields, the container and
// the blob.
type signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func newSigner(key []byte, ttl time.Duration, now func() time.Time) *signer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &signer{key: key, ttl: ttl, now: now}
}

func (s *signer) mint(container string, scope sas.Scope, names []string) (*sas.Grant, error) {
	start := s.now().UTC().Truncate(time.Second)
	expiry := start.Add(s.ttl)
	grant := &sas.Grant{
		ReadTokens:  make(map[string]string, len(names)),
		GeneratedAt: start,
		ExpiresOn:   expiry,
	}

	switch scope {
	case sas.ScopeFile:
		for _, name := range names {
			if name == "" {
				continue
			}
			grant.ReadTokens[name] = s.token(container, name, resourceBlob, start, expiry)
		}
	case sas.ScopeContainer:
		grant.ReadTokens[container] = s.token(container, "", resourceContainer, start, expiry)
	default:
		return nil, fmt.Errorf("%w: %s", sas.ErrScopeUnsupported, scope)
	}
	return grant, nil
}

func (s *signer) token(container, blob, resource string, start, expiry time.Time) string {
	st := strconv.FormatInt(start.Unix(), 10)
	se := strconv.FormatInt(expiry.Unix(), 10)
	q := url.Values{}
	q.Set("sv", signedVersion)
	q.Set("sp", signedPermissions)
	q.Set("sr", resource)
	q.Set("st", st)
	q.Set("se", se)
	q.Set("sig", s.sign(signedVersion, signedPermissions, resource, st, se, container, blob))
	return q.Encode()
}

func (s *signer) sign(fields ...string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(strings.Join(fields, "\n")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verify accepts the query when any of the token sets it carries is valid.
// Re-authorizing an already enriched URL appends a fresh set after the old
// one, so sets are matched by position and an expired set does not shadow a
// newer one.
func (s *signer) verify(container, blob string, query url.Values) error {
	sigs := query["sig"]
	if len(sigs) == 0 {
		return sas.ErrTokenMissing
	}
	err := sas.ErrTokenInvalid
	for i := range sigs {
		e := s.verifySet(container, blob, tokenSet{
			sv:  nth(query["sv"], i),
			sp:  nth(query["sp"], i),
			sr:  nth(query["sr"], i),
			st:  nth(query["st"], i),
			se:  nth(query["se"], i),
			sig: sigs[i],
		})
		if e == nil {
			return nil
		}
		// Report the most specific failure: expired or not yet valid beats invalid.
		if !errors.Is(e, sas.ErrTokenInvalid) {
			err = e
		}
	}
	return err
}

type tokenSet struct {
	sv, sp, sr, st, se, sig string
}

func (s *signer) verifySet(container, blob string, t tokenSet) error {
	if t.sig == "" || t.sv != signedVersion || t.sp != signedPermissions {
		return sas.ErrTokenInvalid
	}

	signedBlob := blob
	switch t.sr {
	case resourceBlob:
	case resourceContainer:
		signedBlob = ""
	default:
		return sas.ErrTokenInvalid
	}

	expected := s.sign(t.sv, t.sp, t.sr, t.st, t.se, container, signedBlob)
	if !hmac.Equal([]byte(t.sig), []byte(expected)) {
		return sas.ErrTokenInvalid
	}

	start, err := strconv.ParseInt(t.st, 10, 64)
	if err != nil {
		return sas.ErrTokenInvalid
	}
	expiry, err := strconv.ParseInt(t.se, 10, 64)
	if err != nil {
		return sas.ErrTokenInvalid
	}
	now := s.now().Unix()
	if now+int64(clockSkew/time.Second) < start {
		return sas.ErrTokenNotYetValid
	}
	if now > expiry {
		return sas.ErrTokenExpired
	}
	return nil
}

func nth(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
