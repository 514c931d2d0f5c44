package domain

import (
	"fmt"
	"strconv"
)

// ReactType is a player's reaction to a review.
type ReactType int

const (
	ReactNothing ReactType = iota
	ReactPositive
	ReactNegative
)

func (r ReactType) String() string {
	switch r {
	case ReactNothing:
		return "NOTHING"
	case ReactPositive:
		return "POSITIVE"
	case ReactNegative:
		return "NEGATIVE"
	default:
		return fmt.Sprintf("ReactType(%d)", int(r))
	}
}

const (
	MinRating = 0
	MaxRating = 5
)

// ParseID parses an opaque 64-bit identifier supplied as text.
func ParseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrValidation(fmt.Sprintf("%s must be an integer, got %q", field, s))
	}
	return id, nil
}

// ParseInt parses a small integer argument such as a rating or a react type.
func ParseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrValidation(fmt.Sprintf("%s must be an integer, got %q", field, s))
	}
	return n, nil
}

// ValidateRating checks a review rating is within [0,5].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrValidation(fmt.Sprintf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating))
	}
	return nil
}

// ValidateReactType checks a reaction is one of NOTHING, POSITIVE or NEGATIVE.
func ValidateReactType(reactType int) (ReactType, error) {
	r := ReactType(reactType)
	if r < ReactNothing || r > ReactNegative {
		return 0, ErrValidation(fmt.Sprintf("reactType must be 0 (NOTHING), 1 (POSITIVE) or 2 (NEGATIVE), got %d", reactType))
	}
	return r, nil
}
