package profile

import (
	"time"

	"github.com/wakahia/baraza/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

var AllRoles = []string{RoleStudent, RoleFaculty, RoleAdmin}

// Profile identifies a person. Profiles are created by the identity
// collaborator (or the admin CLI) and are read-only from the messaging
// core's perspective.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewProfile contains information needed to create a new Profile.
type NewProfile struct {
	Name   string `json:"name" validate:"required"`
	Handle string `json:"handle" validate:"required,min=3,handle"`
	Role   string `json:"role" validate:"omitempty,oneof=student faculty admin"`
}

func (np *NewProfile) Validate(svc *Service) error {
	np.Name = core.CleanString(np.Name)
	np.Handle = core.CleanString(np.Handle, true /* lower */)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	return svc.checkHandleUniqueness(np.Handle)
}
