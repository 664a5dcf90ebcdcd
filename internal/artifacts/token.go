package artifacts

import (
	"strings"
	"sync"
	"time"
)

// The fractional separator is rewritten to "_" so tokens read YYYYMMDD_HHMMSS_ffffff.
const tokenLayout = "20060102_150405.000000"

// Token identifies one request's artifacts. It is the request's timestamp at
// microsecond resolution, formatted YYYYMMDD_HHMMSS_ffffff.
type Token string

// NewToken formats t as a Token.
func NewToken(t time.Time) Token {
	s := t.Format(tokenLayout)
	return Token(s[:15] + "_" + s[16:])
}

// ParseToken validates s and returns it as a Token.
func ParseToken(s string) (Token, error) {
	if len(s) != len(tokenLayout) || s[15] != '_' {
		return "", ErrInvalidToken
	}
	if _, err := time.Parse(tokenLayout, s[:15]+"."+s[16:]); err != nil {
		return "", ErrInvalidToken
	}
	return Token(s), nil
}

// ImageName returns the stored image file name for ext.
func (t Token) ImageName(ext string) string {
	return "upload_" + string(t) + "." + ext
}

// ChartName returns the chart file name.
func (t Token) ChartName() string {
	return "probs_" + string(t) + ".png"
}

// TokenFromName recovers the token embedded in an image or chart file name.
func TokenFromName(name string) (Token, error) {
	base, _, _ := strings.Cut(name, ".")
	for _, prefix := range []string{"upload_", "probs_"} {
		if rest, ok := strings.CutPrefix(base, prefix); ok {
			return ParseToken(rest)
		}
	}
	return "", ErrInvalidToken
}

// Namer issues tokens that strictly increase within a process.
// When the clock repeats or steps backwards the next token advances one microsecond
// past the last one issued.
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewNamer creates a Namer reading from clock, or time.Now when clock is nil.
func NewNamer(clock func() time.Time) *Namer {
	if clock == nil {
		clock = time.Now
	}
	return &Namer{now: clock}
}

// Next returns the next token.
func (n *Namer) Next() Token {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := n.now().Truncate(time.Microsecond)
	if !n.last.IsZero() && !t.After(n.last) {
		t = n.last.Add(time.Microsecond)
	}
	n.last = t

	return NewToken(t)
}
