package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// GetGravatarURL returns the avatar shown next to staff names in the back-office.
// Gravatar keys avatars by the md5 of the normalized address.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = 200
	}

	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
