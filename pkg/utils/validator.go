package utils

import (
	"errors"
	"strings"
)

// maxNicknameBytes is the document id size limit of the claim collection.
const maxNicknameBytes = 1500

// NormalizeNickname trims raw and returns the display form plus the
// lower-cased key used for claims.
func NormalizeNickname(raw string) (nickname, normalized string) {
	nickname = strings.TrimSpace(raw)
	return nickname, strings.ToLower(nickname)
}

// ValidateNickname validates a normalized nickname, which is also the claim
// document id
func ValidateNickname(normalized string) error {
	if normalized == "" {
		return errors.New("nickname is required")
	}
	if len(normalized) > maxNicknameBytes {
		return errors.New("nickname is too long")
	}
	if strings.Contains(normalized, "/") {
		return errors.New("nickname cannot contain '/'")
	}
	if normalized == "." || normalized == ".." {
		return errors.New("nickname cannot be '.' or '..'")
	}
	if strings.HasPrefix(normalized, "__") && strings.HasSuffix(normalized, "__") {
		return errors.New("nickname cannot start and end with '__'")
	}
	return nil
}

// NormalizeCommentText trims a comment body and rejects an empty one
func NormalizeCommentText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errors.New("comment text is required")
	}
	return text, nil
}
