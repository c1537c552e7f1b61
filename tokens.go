package verifyreset

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	digitAlphabet        = "0123456789"
	alphanumericAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// TokenGenerator issues the long and short token pair for a workflow.
type TokenGenerator interface {
	LongToken() (string, error)
	ShortToken() (string, error)
}

// RandomTokens generates tokens with crypto/rand.
type RandomTokens struct {
	LongLen  int
	ShortLen int
	Digits   bool
}

// NewRandomTokens returns a generator sized after cfg.
func NewRandomTokens(cfg Config) RandomTokens {
	cfg = cfg.withDefaults()
	return RandomTokens{
		LongLen:  cfg.LongTokenLen,
		ShortLen: cfg.ShortTokenLen,
		Digits:   !cfg.ShortTokenAlphanumeric,
	}
}

// LongToken returns LongLen random bytes hex encoded.
func (g RandomTokens) LongToken() (string, error) {
	n := g.LongLen
	if n <= 0 {
		n = DefaultConfig().LongTokenLen
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", internalError(err, "failed to generate long token")
	}
	return hex.EncodeToString(buf), nil
}

// ShortToken returns ShortLen characters drawn uniformly from digits or
// from [0-9A-Za-z].
func (g RandomTokens) ShortToken() (string, error) {
	n := g.ShortLen
	if n <= 0 {
		n = DefaultConfig().ShortTokenLen
	}
	alphabet := alphanumericAlphabet
	if g.Digits {
		alphabet = digitAlphabet
	}
	return randomString(n, alphabet)
}

func randomString(n int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", internalError(err, "failed to generate short token")
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

type tokenPair struct {
	long  string
	short string
}

func issueTokens(g TokenGenerator) (tokenPair, error) {
	long, err := g.LongToken()
	if err != nil {
		return tokenPair{}, err
	}
	short, err := g.ShortToken()
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{long: long, short: short}, nil
}
