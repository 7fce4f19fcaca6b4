// Package lifecycle holds the parcel delivery state machine: the fixed order of
// statuses and which roles may apply each step.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

type step struct {
	next  models.ParcelStatus
	roles map[models.Role]bool
}

var (
	travelerOrAdmin = map[models.Role]bool{models.RoleTraveler: true, models.RoleAdmin: true}

	// created -> matched has no roles: only the matcher moves a parcel there.
	table = map[models.ParcelStatus]step{
		models.StatusCreated:   {next: models.StatusMatched},
		models.StatusMatched:   {next: models.StatusPickedUp, roles: travelerOrAdmin},
		models.StatusPickedUp:  {next: models.StatusInTransit, roles: travelerOrAdmin},
		models.StatusInTransit: {next: models.StatusDelivered, roles: travelerOrAdmin},
	}

	order = []models.ParcelStatus{
		models.StatusCreated,
		models.StatusMatched,
		models.StatusPickedUp,
		models.StatusInTransit,
		models.StatusDelivered,
	}

	// presentation sub-flow labels collapse onto canonical states
	aliases = map[string]models.ParcelStatus{
		"accepted":    models.StatusMatched,
		"in_progress": models.StatusMatched,
	}

	stages = map[models.ParcelStatus]string{
		models.StatusCreated:   "pending",
		models.StatusMatched:   "accepted",
		models.StatusPickedUp:  "picked_up",
		models.StatusInTransit: "picked_up",
		models.StatusDelivered: "delivered",
	}
)

// Statuses returns the canonical order.
func Statuses() []models.ParcelStatus {
	out := make([]models.ParcelStatus, len(order))
	copy(out, order)
	return out
}

// Next returns the only legal successor of s. ok is false for delivered and
// unknown statuses.
func Next(s models.ParcelStatus) (models.ParcelStatus, bool) {
	st, ok := table[s]
	return st.next, ok
}

func IsTerminal(s models.ParcelStatus) bool {
	return s == models.StatusDelivered
}

// Parse accepts canonical statuses and the presentation aliases.
func Parse(raw string) (models.ParcelStatus, error) {
	v := models.ParcelStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range order {
		if s == v {
			return s, nil
		}
	}
	if s, ok := aliases[string(v)]; ok {
		return s, nil
	}
	names := make([]string, 0, len(order))
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return "", pkgerrors.Validationf("unknown parcel status %q, expected one of %s", raw, strings.Join(names, ", "))
}

// Stage renders the label the apps show for a canonical status.
func Stage(s models.ParcelStatus) string {
	return stages[s]
}

// CheckTransition decides whether role may move a parcel from -> to. Senders
// are rejected before the transition itself is looked at.
func CheckTransition(from, to models.ParcelStatus, role models.Role) error {
	if role == models.RoleSender {
		return fmt.Errorf("%w: senders cannot update parcel status", pkgerrors.ErrForbidden)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", pkgerrors.ErrForbidden, role)
	}

	if IsTerminal(from) {
		return fmt.Errorf("%w: parcel is %s and has no further status", pkgerrors.ErrInvalidTransition, from)
	}
	next, ok := Next(from)
	if !ok {
		return fmt.Errorf("%w: unknown parcel status %q", pkgerrors.ErrInvalidTransition, from)
	}
	if next != to {
		return fmt.Errorf("%w: %s -> %s, next allowed status is %s", pkgerrors.ErrInvalidTransition, from, to, next)
	}
	st := table[from]
	if len(st.roles) == 0 {
		return fmt.Errorf("%w: a parcel becomes %s only by matching it to a trip", pkgerrors.ErrInvalidTransition, to)
	}
	if !st.roles[role] {
		return fmt.Errorf("%w: role %s cannot set status %s", pkgerrors.ErrForbidden, role, to)
	}
	return nil
}
