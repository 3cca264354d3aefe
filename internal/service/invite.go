package service

import (
	"crypto/rand"
	"fmt"
)

// inviteCodeAlphabet avoids the lookalike pairs 0/O and 1/I so codes survive
// being read aloud or retyped.
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 6

// newInviteCode returns a random 6-character code. The alphabet has exactly
// 32 characters, so masking to 5 bits keeps the distribution uniform.
func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, inviteCodeLength)
	for i, b := range buf {
		code[i] = inviteCodeAlphabet[b&0x1f]
	}
	return string(code), nil
}
