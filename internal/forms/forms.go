// Package forms validates the input of each screen before it reaches the
// session store or the API. Validation returns field errors; it never fails.
package forms

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field name to its message. Empty means valid.
type FieldErrors map[string]string

func (fe FieldErrors) Valid() bool { return len(fe) == 0 }

// Fields returns the failing field names in a stable order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const (
	msgNameRequired        = "Nome obrigatório"
	msgEmailRequired       = "E-mail é obrigatório"
	msgEmailInvalid        = "Digite um email válido"
	msgPasswordRequired    = "Senha é obrigatória"
	msgPasswordMin         = "No mínimo 6 digitos"
	msgPasswordMismatch    = "A senha não confere"
	msgOldPasswordRequired = "Senha atual é obrigatória"
	msgTokenRequired       = "Token de recuperação ausente"
	msgInvalid             = "Valor inválido"
)

// messages is keyed by "field.tag", falling back to the tag alone.
var messages = map[string]string{
	"name.required":                 msgNameRequired,
	"email.required":                msgEmailRequired,
	"email":                         msgEmailInvalid,
	"password.required":             msgPasswordRequired,
	"min":                           msgPasswordMin,
	"eqfield":                       msgPasswordMismatch,
	"old_password.required_with":    msgOldPasswordRequired,
	"token.required":                msgTokenRequired,
	"password_confirmation.eqfield": msgPasswordMismatch,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) FieldErrors {
	out := FieldErrors{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[""] = msgInvalid
		return out
	}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = messageFor(field, fe.Tag())
	}
	return out
}

func messageFor(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	if m, ok := messages[tag]; ok {
		return m
	}
	return msgInvalid
}

type SignIn struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (f SignIn) Validate() FieldErrors { return validateStruct(f) }

type SignUp struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

func (f SignUp) Validate() FieldErrors { return validateStruct(f) }

type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

func (f ForgotPassword) Validate() FieldErrors { return validateStruct(f) }

type ResetPassword struct {
	Token                string `json:"token" validate:"required"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

func (f ResetPassword) Validate() FieldErrors { return validateStruct(f) }

// Profile leaves the password unchanged when Password is empty.
type Profile struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	OldPassword          string `json:"old_password" validate:"required_with=Password"`
	Password             string `json:"password" validate:"omitempty,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

func (f Profile) Validate() FieldErrors { return validateStruct(f) }

// ResetToken extracts the token from a password reset link such as
// "https://app/reset-password?token=abc". Input that is not a link is
// returned trimmed, as a bare token.
func ResetToken(linkOrToken string) string {
	s := strings.TrimSpace(linkOrToken)
	if !strings.Contains(s, "token=") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}
