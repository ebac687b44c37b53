package accounts

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/platinummonkey/accountgate/pkg/auth"
)

// Response and error messages of the administration endpoints
const (
	MsgProfileUpdated  = "Profile updated successfully!"
	MsgUserCreated     = "User created successfully!"
	MsgUserUpdated     = "User updated successfully!"
	MsgUserSuspended   = "User suspended successfully!"
	MsgUserActivated   = "User activated successfully!"
	MsgNameEmailNeeded = "Name and email are required"
	MsgFieldTooLong    = "Name and email must be at most 100 characters"
	MsgInvalidStatus   = "Invalid status value"
	MsgInvalidRole     = "Invalid role value"
	MsgUpdateFailed    = "Database error, could not update user"
	MsgCreateFailed    = "Database error, could not create user"
)

// CreateInput is the body of an administrative create
type CreateInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

// UpdateInput is the body of an administrative update. Nil fields are left unchanged.
type UpdateInput struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}

// ProfileInput is the body of a self-service profile update
type ProfileInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// accountFields is the validated shape of every account written by the service
type accountFields struct {
	Name   string `validate:"required,max=100"`
	Email  string `validate:"required,max=100"`
	Role   string `validate:"oneof=basicuser admin"`
	Status string `validate:"oneof=active deactivated"`
}

func fieldsOf(a *auth.Account) accountFields {
	return accountFields{Name: a.Name, Email: a.Email, Role: string(a.Role), Status: string(a.Status)}
}

// check validates an account and maps the first failure to its user-visible message
func check(validate *validator.Validate, op string, a *auth.Account) error {
	err := validate.Struct(fieldsOf(a))
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return auth.E(auth.KindValidation, op, "invalid account", err)
	}

	fe := fieldErrs[0]
	msg := MsgNameEmailNeeded
	switch fe.Field() {
	case "Role":
		msg = MsgInvalidRole
	case "Status":
		msg = MsgInvalidStatus
	default:
		if fe.Tag() == "max" {
			msg = MsgFieldTooLong
		}
	}
	return auth.E(auth.KindValidation, op, msg, err)
}

// fold trims and lower-cases an update value. Unlike auth.NormalizeRole and
// auth.NormalizeStatus it never substitutes a default, so an explicit empty value
// fails validation.
func fold(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// apply copies the non-nil fields of in onto a, normalizing as it goes
func (in UpdateInput) apply(a *auth.Account) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		a.Email = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		a.Role = auth.Role(fold(*in.Role))
	}
	if in.Status != nil {
		a.Status = auth.Status(fold(*in.Status))
	}
}

func (in ProfileInput) apply(a *auth.Account) {
	UpdateInput{Name: in.Name, Email: in.Email}.apply(a)
}
