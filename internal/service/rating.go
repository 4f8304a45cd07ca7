package service

import (
	"rentbook/internal/domain"
	"rentbook/internal/models"
)

// ValidateRatingValue checks the rating bounds without touching storage.
func ValidateRatingValue(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return domain.ErrInvalidRatingValue
	}
	return nil
}

// CheckRating decides whether the actor may attach a rating to the booking.
// Only the renter rates, only once, and only a completed booking.
func CheckRating(b *models.Booking, role models.Role, rating int) error {
	if err := ValidateRatingValue(rating); err != nil {
		return err
	}
	if role != models.RoleRenter {
		return domain.ErrNotAuthorized
	}
	if b.Status != models.StatusCompleted {
		return domain.ErrNotCompleted
	}
	if b.Rating != nil {
		return domain.ErrAlreadyRated
	}
	return nil
}
