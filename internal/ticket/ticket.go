// Package ticket generates the human-presentable identifiers handed to
// participants: ticket ids and team invite codes.
package ticket

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Prefix starts every ticket id.
const Prefix = "TICKET"

const (
	timeChars   = 10
	randomChars = 8
	inviteChars = 8
)

// NewID returns a ticket id of the form TICKET-<time>-<random>. The time
// component is the millisecond timestamp of a ULID and the random component
// carries 40 bits of entropy, both in upper-case Crockford base32.
func NewID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}
	s := id.String()
	return Prefix + "-" + s[:timeChars] + "-" + s[timeChars:timeChars+randomChars], nil
}

// IssuedAt decodes the time component of a ticket id. Ticket ids are opaque
// to consumers; this exists for diagnostics.
func IssuedAt(ticketID string) (time.Time, bool) {
	parts := strings.Split(ticketID, "-")
	if len(parts) != 3 || parts[0] != Prefix || len(parts[1]) != timeChars {
		return time.Time{}, false
	}
	id, err := ulid.ParseStrict(parts[1] + strings.Repeat("0", 26-timeChars))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(id.Time()).UTC(), true
}

// NewInviteCode returns an 8 character upper-case team invite code.
// Uniqueness is enforced by the store; callers regenerate on collision.
func NewInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:inviteChars])
}
