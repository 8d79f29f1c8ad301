// Package pairing implements the POS-side scanner pairing flow.
//
// Each POS screen instance owns exactly one pairing session at a time:
//  1. An 8-character alphanumeric session ID is generated
//  2. A pairing URL embedding the ID is rendered as a QR code
//  3. A second device scans the code, opens the URL, and joins the relay
//     channel under the same session ID
//
// Resetting generates a fresh, unrelated session; the old one is simply
// abandoned (the relay garbage-collects idle sessions on its own).
package pairing

import (
	"crypto/rand"
	"io"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// SessionIDAlphabet is the full alphanumeric alphabet. Session IDs are
	// machine-carried (QR + URL), so ambiguous glyphs are not a concern.
	SessionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// SessionIDLength is the number of characters in a session ID.
	SessionIDLength = 8
)

// NewSessionID generates a uniformly random session identifier.
// Not cryptographically meaningful; collision risk across a single
// operator's pairing attempts is negligible.
func NewSessionID() string {
	return sessionIDFrom(rand.Reader)
}

// sessionIDFrom draws alphabet indices from r by rejection sampling: bytes at
// or above the largest multiple of the alphabet size are discarded, since
// taking them modulo 62 would skew the first 256%62 characters.
func sessionIDFrom(r io.Reader) string {
	const limit = 256 - 256%len(SessionIDAlphabet)

	id := make([]byte, 0, SessionIDLength)
	buf := make([]byte, 2*SessionIDLength)
	for len(id) < SessionIDLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			panic("pairing: session id entropy unavailable: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			id = append(id, SessionIDAlphabet[int(b)%len(SessionIDAlphabet)])
			if len(id) == SessionIDLength {
				break
			}
		}
	}
	return string(id)
}

// Session is one pairing attempt between a POS screen and a mobile scanner.
type Session struct {
	ID         string
	PairingURL string
}

// NewSession creates a fresh session for the given serving origin.
func NewSession(origin string) Session {
	id := NewSessionID()
	return Session{
		ID:         id,
		PairingURL: URL(origin, id),
	}
}

// URL builds the pairing address the second device opens:
// {origin}/scanner?session={sessionID}. Never fails; origin is taken as-is
// apart from trailing-slash trimming.
func URL(origin, sessionID string) string {
	return strings.TrimRight(origin, "/") + "/scanner?session=" + sessionID
}

// QRPNG renders the pairing URL as a PNG image of the given pixel size.
func (s Session) QRPNG(size int) ([]byte, error) {
	return qrcode.Encode(s.PairingURL, qrcode.Medium, size)
}

// QRTerminal renders the pairing URL as a block-character QR code suitable
// for printing to a terminal.
func (s Session) QRTerminal() (string, error) {
	q, err := qrcode.New(s.PairingURL, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
