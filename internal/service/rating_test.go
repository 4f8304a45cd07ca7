package service

import (
	"testing"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateRatingValue(t *testing.T) {
	for _, v := range []int{1, 3, 5} {
		assert.NoError(t, ValidateRatingValue(v))
	}
	for _, v := range []int{-1, 0, 6, 100} {
		assert.ErrorIs(t, ValidateRatingValue(v), domain.ErrInvalidRatingValue)
	}
}

func TestCheckRating(t *testing.T) {
	rated := 4
	completed := &models.Booking{Status: models.StatusCompleted}
	active := &models.Booking{Status: models.StatusActive}
	alreadyRated := &models.Booking{Status: models.StatusCompleted, Rating: &rated}

	tests := []struct {
		name    string
		booking *models.Booking
		role    models.Role
		rating  int
		wantErr error
	}{
		{"renter rates completed", completed, models.RoleRenter, 5, nil},
		{"owner cannot rate", completed, models.RoleOwner, 5, domain.ErrNotAuthorized},
		{"arbiter cannot rate", completed, models.RoleArbiter, 5, domain.ErrNotAuthorized},
		{"not completed", active, models.RoleRenter, 5, domain.ErrNotCompleted},
		{"out of range", completed, models.RoleRenter, 6, domain.ErrInvalidRatingValue},
		{"value checked before role", completed, models.RoleOwner, 0, domain.ErrInvalidRatingValue},
		{"first rating wins", alreadyRated, models.RoleRenter, 2, domain.ErrAlreadyRated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRating(tt.booking, tt.role, tt.rating)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
