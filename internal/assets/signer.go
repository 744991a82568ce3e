// Package assets stores NPC portraits on local disk and hands them out
// through time-limited signed URLs.
package assets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultURLTTL is the lifetime of a signed URL when none is configured.
const DefaultURLTTL = 60 * time.Minute

var (
	ErrBadSignature = errors.New("invalid asset signature")
	ErrExpired      = errors.New("asset url expired")
	ErrBadPath      = errors.New("invalid asset path")
)

// Signer issues and verifies signed asset URLs for files under dir.
type Signer struct {
	dir     string
	baseURL string
	key     []byte
	now     func() time.Time
}

func NewSigner(dir, baseURL string, key []byte) *Signer {
	return &Signer{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		now:     time.Now,
	}
}

// Dir returns the storage root.
func (s *Signer) Dir() string { return s.dir }

// SignedURL returns a URL for the asset at the slash-separated relative path
// p, valid for ttl. It reports false when the asset is missing or cannot be
// served; callers treat that as "no image".
func (s *Signer) SignedURL(p string, ttl time.Duration) (string, bool) {
	if p == "" || s.baseURL == "" || len(s.key) == 0 {
		return "", false
	}
	full, err := s.resolve(p)
	if err != nil {
		return "", false
	}
	if fi, err := os.Stat(full); err != nil || fi.IsDir() {
		return "", false
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}

	exp := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	q := url.Values{"exp": {exp}, "sig": {s.sign(p, exp)}}
	return s.baseURL + "/assets/" + escapePath(p) + "?" + q.Encode(), true
}

// Verify checks a signature produced by SignedURL and returns the file path
// on disk.
func (s *Signer) Verify(p, exp, sig string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if len(s.key) == 0 {
		return "", ErrBadSignature
	}
	want, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(want, s.mac(p, exp)) {
		return "", ErrBadSignature
	}
	ts, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrBadSignature
	}
	if s.now().Unix() > ts {
		return "", ErrExpired
	}
	return full, nil
}

func (s *Signer) resolve(p string) (string, error) {
	clean := path.Clean(p)
	if clean != p || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", ErrBadPath
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *Signer) mac(p, exp string) []byte {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(p))
	h.Write([]byte{'\n'})
	h.Write([]byte(exp))
	return h.Sum(nil)
}

func (s *Signer) sign(p, exp string) string {
	return hex.EncodeToString(s.mac(p, exp))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
