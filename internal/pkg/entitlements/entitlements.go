package entitlements

import (
	"github.com/PhilDL/shuken/app/models"
)

type Level string

const (
	LevelVisitor    Level = "visitor"
	LevelMember     Level = "member"
	LevelSubscriber Level = "subscriber"
)

// For returns the access level of a visitor. A nil customer is anonymous.
func For(customer *models.Customer) Level {
	switch {
	case customer == nil:
		return LevelVisitor
	case customer.HasActiveSubscription():
		return LevelSubscriber
	default:
		return LevelMember
	}
}

// CanRead reports whether the level unlocks the full text of a post.
// Subscriber-only posts show their excerpt to everyone else.
func CanRead(level Level, post *models.Post) bool {
	if post == nil {
		return false
	}
	if !post.MembersOnly {
		return true
	}
	return level == LevelSubscriber
}
