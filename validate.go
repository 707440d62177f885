package coach

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Form field names used as ValidationErrors keys.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldName            = "name"
	FieldTechnology      = "technology"
	FieldGrade           = "grade"
	FieldQuestionCount   = "questionCount"
)

// Credential length bounds.
const (
	MinEmailLength    = 6
	MaxEmailLength    = 30
	MinPasswordLength = 8
	MaxPasswordLength = 30
	MaxQuestionCount  = 20
)

var (
	emailCharset    = regexp.MustCompile(`^[a-zA-Z0-9@._-]+$`)
	emailShape      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	passwordCharset = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]+$`)
	hasLetter       = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)
)

// ValidationErrors maps a form field to the message describing why it is
// invalid. It unwraps to ErrValidation.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

// orNil returns nil when no field failed so callers can use `err != nil`.
func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ValidateEmail returns a message describing why email is unacceptable,
// or "" when it is acceptable.
func ValidateEmail(email string) string {
	switch {
	case email == "":
		return "Email is required"
	case len(email) < MinEmailLength:
		return fmt.Sprintf("Email must be at least %d characters", MinEmailLength)
	case len(email) > MaxEmailLength:
		return fmt.Sprintf("Email must be less than %d characters", MaxEmailLength)
	case !emailCharset.MatchString(email):
		return "Email can only contain Latin characters, numbers, @, . _ -"
	case !emailShape.MatchString(email):
		return "Please enter a valid email format"
	}
	return ""
}

// ValidatePassword returns a message describing why password is
// unacceptable, or "" when it is acceptable.
func ValidatePassword(password string) string {
	switch {
	case password == "":
		return "Password is required"
	case len(password) < MinPasswordLength:
		return fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Sprintf("Password must be less than %d characters", MaxPasswordLength)
	case !passwordCharset.MatchString(password):
		return "Password can only contain Latin characters and allowed symbols"
	case !hasLetter.MatchString(password):
		return "Password must contain at least one letter"
	case !hasDigit.MatchString(password):
		return "Password must contain at least one number"
	}
	return ""
}

// ValidateConfirmation returns a message when confirm does not match password.
func ValidateConfirmation(password, confirm string) string {
	if confirm != password {
		return "Passwords do not match"
	}
	return ""
}

// ValidateSignIn checks credentials before a sign-in. Only the email shape
// is checked; the password is left to the service.
func ValidateSignIn(c Credentials) error {
	errs := ValidationErrors{}
	if msg := ValidateEmail(c.Email); msg != "" {
		errs[FieldEmail] = msg
	}
	if c.Password == "" {
		errs[FieldPassword] = "Password is required"
	}
	return errs.orNil()
}

// ValidateSignUp checks a new-account form.
func ValidateSignUp(c Credentials, confirm string) error {
	errs := ValidationErrors{}
	if msg := ValidateEmail(c.Email); msg != "" {
		errs[FieldEmail] = msg
	}
	if msg := ValidatePassword(c.Password); msg != "" {
		errs[FieldPassword] = msg
	}
	if msg := ValidateConfirmation(c.Password, confirm); msg != "" {
		errs[FieldConfirmPassword] = msg
	}
	return errs.orNil()
}

// Validate checks a chat creation request.
func (c NewChat) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(c.Name) == "" {
		errs[FieldName] = "Session name is required"
	}
	if c.Technology == "" {
		errs[FieldTechnology] = "Technology selection is required"
	} else if !c.Technology.Known() {
		errs[FieldTechnology] = fmt.Sprintf("Unknown technology %q", c.Technology)
	}
	if c.Grade == "" {
		errs[FieldGrade] = "Experience level selection is required"
	} else if !c.Grade.Known() {
		errs[FieldGrade] = fmt.Sprintf("Unknown experience level %q", c.Grade)
	}
	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestionCount {
		errs[FieldQuestionCount] = fmt.Sprintf("Question count must be between 1 and %d", MaxQuestionCount)
	}
	return errs.orNil()
}
