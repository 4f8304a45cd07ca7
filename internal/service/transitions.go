package service

import (
	"fmt"

	"rentbook/internal/domain"
	"rentbook/internal/models"
)

// allowedTransitions is the booking status graph.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusActive, models.StatusCancelled},
	models.StatusActive:    {models.StatusCompleted, models.StatusDisputed},
	models.StatusCompleted: {models.StatusDisputed},
	models.StatusDisputed:  {models.StatusCompleted, models.StatusCancelled},
	models.StatusCancelled: {},
}

type edge struct {
	from models.BookingStatus
	to   models.BookingStatus
}

// transitionGuards lists who may drive each edge of the graph.
var transitionGuards = map[edge][]models.Role{
	{models.StatusPending, models.StatusConfirmed}:   {models.RoleOwner},
	{models.StatusPending, models.StatusCancelled}:   {models.RoleRenter, models.RoleOwner},
	{models.StatusConfirmed, models.StatusActive}:    {models.RoleOwner},
	{models.StatusConfirmed, models.StatusCancelled}: {models.RoleRenter, models.RoleOwner},
	{models.StatusActive, models.StatusCompleted}:    {models.RoleOwner},
	{models.StatusActive, models.StatusDisputed}:     {models.RoleRenter, models.RoleOwner},
	{models.StatusCompleted, models.StatusDisputed}:  {models.RoleRenter, models.RoleOwner},
	{models.StatusDisputed, models.StatusCompleted}:  {models.RoleOwner, models.RoleArbiter},
	{models.StatusDisputed, models.StatusCancelled}:  {models.RoleOwner, models.RoleArbiter},
}

// CanTransition reports whether the graph has an edge from -> to.
func CanTransition(from, to models.BookingStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from the given one.
func AllowedTargets(from models.BookingStatus) []models.BookingStatus {
	return append([]models.BookingStatus(nil), allowedTransitions[from]...)
}

func IsTerminal(s models.BookingStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// RoleCanTransition reports whether role may drive the from -> to edge.
func RoleCanTransition(from, to models.BookingStatus, role models.Role) bool {
	for _, r := range transitionGuards[edge{from, to}] {
		if r == role {
			return true
		}
	}
	return false
}

// CheckTransition validates a requested status change: the graph first, then the role.
func CheckTransition(from, to models.BookingStatus, role models.Role) error {
	if !CanTransition(from, to) {
		if IsTerminal(from) {
			return fmt.Errorf("%w: %s is final", domain.ErrInvalidTransition, from)
		}
		return fmt.Errorf("%w: %s -> %s, allowed %v", domain.ErrInvalidTransition, from, to, AllowedTargets(from))
	}
	if !RoleCanTransition(from, to, role) {
		return domain.ErrNotAuthorized
	}
	return nil
}
