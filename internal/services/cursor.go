package services

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	intake_errors "intake-chat/pkg/errors"
)

const cursorVersion = "v1"

// EncodeCursor produces an opaque pagination cursor from a message sequence
// number. Sequence-based cursors stay stable under concurrent inserts, which
// an offset would not.
func EncodeCursor(seq int64) string {
	if seq <= 0 {
		return ""
	}
	raw := fmt.Sprintf("%s:%d", cursorVersion, seq)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. An empty cursor means "from the
// beginning".
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, intake_errors.ErrInvalidInput
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] != cursorVersion {
		return 0, intake_errors.ErrInvalidInput
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || seq < 0 {
		return 0, intake_errors.ErrInvalidInput
	}
	return seq, nil
}
