package auth

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// maxNumericDate bounds accepted NumericDate values, in seconds.
const maxNumericDate = 1e12

var errNumericDate = errors.New("invalid numeric date")

// tokenClaims carries sub, iat and exp. Unlike jwt.RegisteredClaims its dates
// keep millisecond precision without touching jwt.TimePrecision.
type tokenClaims struct {
	Subject   string      `json:"sub,omitempty"`
	IssuedAt  *millisDate `json:"iat,omitempty"`
	ExpiresAt *millisDate `json:"exp,omitempty"`
}

var _ jwt.Claims = (*tokenClaims)(nil)

func (c *tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt.numeric(), nil }
func (c *tokenClaims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt.numeric(), nil }
func (c *tokenClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *tokenClaims) GetIssuer() (string, error) { return "", nil }
func (c *tokenClaims) GetSubject() (string, error) { return c.Subject, nil }
func (c *tokenClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// millisDate is a JWT NumericDate with millisecond resolution. Whole seconds
// encode as integers, anything finer as a decimal fraction of seconds.
type millisDate struct {
	time.Time
}

func newMillisDate(t time.Time) *millisDate {
	return &millisDate{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

func (d *millisDate) numeric() *jwt.NumericDate {
	if d == nil {
		return nil
	}
	return &jwt.NumericDate{Time: d.Time}
}

func (d millisDate) MarshalJSON() ([]byte, error) {
	ms := d.UnixMilli()
	var out []byte
	if ms < 0 {
		out = append(out, '-')
		ms = -ms
	}
	sec, frac := ms/1000, ms%1000
	out = strconv.AppendInt(out, sec, 10)
	if frac == 0 {
		return out, nil
	}
	fraction := strings.TrimRight(strconv.FormatInt(1000+frac, 10)[1:], "0")
	return append(append(out, '.'), fraction...), nil
}

func (d *millisDate) UnmarshalJSON(b []byte) error {
	seconds, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(seconds) || math.Abs(seconds) > maxNumericDate {
		return errNumericDate
	}
	d.Time = time.UnixMilli(int64(math.Round(seconds * 1000))).UTC()
	return nil
}
