package dto

import (
	"net/http"
	"strings"

	"github.com/hugh/adopt-a-pet/internal/api/validation"
)

type SignupForm struct {
	Username string
	Password string
	Email    string
}

func ParseSignupForm(r *http.Request) SignupForm {
	return SignupForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
	}
}

func (f SignupForm) Validate() map[string]string {
	errors := make(map[string]string)

	if f.Username == "" {
		errors["username"] = "Username is required"
	} else if !validation.IsValidUsername(f.Username) {
		errors["username"] = "Username must be 1-30 letters, digits, dots, dashes or underscores"
	}
	if f.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(f.Password); !ok {
		errors["password"] = msg
	}
	if f.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(f.Email) {
		errors["email"] = "Invalid email address"
	}

	return errors
}

type LoginForm struct {
	Username string
	Password string
}

func ParseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func (f LoginForm) Validate() map[string]string {
	errors := make(map[string]string)

	if f.Username == "" {
		errors["username"] = "Username is required"
	}
	if f.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// ProfileForm edits username and email. Password is the current password,
// required to confirm the change.
type ProfileForm struct {
	Username string
	Email    string
	Password string
}

func ParseProfileForm(r *http.Request) ProfileForm {
	return ProfileForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f ProfileForm) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidUsername(f.Username) {
		errors["username"] = "Username must be 1-30 letters, digits, dots, dashes or underscores"
	}
	if !validation.IsValidEmail(f.Email) {
		errors["email"] = "Invalid email address"
	}
	if f.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}
