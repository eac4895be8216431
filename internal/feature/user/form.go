// Package user holds the client-side form rules applied before any call to the
// user backend.
package user

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"go-user-console/internal/domain"
)

var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type LoginForm struct {
	Email    string `json:"email"    validate:"required,basic_email"`
	Password string `json:"password" validate:"required"`
}

type Form struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"  validate:"required"`
	Email     string `json:"email"      validate:"required,basic_email"`
	Avatar    string `json:"avatar"     validate:"omitempty,url"`
}

var messages = map[string]string{
	"first_name.required": "First name is required",
	"last_name.required":  "Last name is required",
	"email.required":      "Email is required",
	"email.basic_email":   "Email is invalid",
	"password.required":   "Password is required",
	"avatar.url":          "Avatar must be a valid URL",
}

func message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	return field + " is invalid"
}

// fieldErrors turns validator output into a field -> message map.
func fieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe.Field(), fe.Tag())
		}
	}
	return domain.Validation(fields)
}

func ValidateLogin(email, password string) error {
	return fieldErrors(validate.Struct(LoginForm{Email: strings.TrimSpace(email), Password: password}))
}

// ValidateInput trims in and checks it as a full create form.
func ValidateInput(in domain.UserInput) (domain.UserInput, error) {
	f := Form{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Avatar:    strings.TrimSpace(in.Avatar),
	}
	if err := fieldErrors(validate.Struct(f)); err != nil {
		return in, err
	}
	return domain.UserInput{FirstName: f.FirstName, LastName: f.LastName, Email: f.Email, Avatar: f.Avatar}, nil
}

// ValidatePatch checks only the fields the patch sets.
func ValidatePatch(p domain.UserPatch) (domain.UserPatch, error) {
	fields := map[string]string{}
	check := func(name, tag string, v *string) *string {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		if err := validate.Var(s, tag); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				fields[name] = message(name, verrs[0].Tag())
			} else {
				fields[name] = message(name, "")
			}
		}
		return &s
	}
	out := domain.UserPatch{
		FirstName: check("first_name", "required", p.FirstName),
		LastName:  check("last_name", "required", p.LastName),
		Email:     check("email", "required,basic_email", p.Email),
		Avatar:    check("avatar", "omitempty,url", p.Avatar),
	}
	if len(fields) > 0 {
		return p, domain.Validation(fields)
	}
	return out, nil
}
