// Package validation schema-checks and normalizes untrusted widget payloads.
// Validation failures surface as a single joined, human-readable message; the
// caller answers 400 with that message as the body.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "opino-backend/pkg/errors"
)

const (
	// DefaultAuthor is substituted when a comment arrives without an author.
	DefaultAuthor = "Guest"

	maxSiteNameLen = 100
	maxPathNameLen = 500
	maxMessageLen  = 10000
	maxAuthorLen   = 100
)

var (
	siteNameRe = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
	pathNameRe = regexp.MustCompile(`^[a-zA-Z0-9\-_/.]+$`)
	domainRe   = regexp.MustCompile(`^([a-zA-Z0-9]+(-[a-zA-Z0-9]+)*\.)+[a-zA-Z]{2,}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Tag registration only fails for empty tag names.
	v.RegisterValidation("sitename", func(fl validator.FieldLevel) bool {
		return siteNameRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("pathname", func(fl validator.FieldLevel) bool {
		return pathNameRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("domainname", func(fl validator.FieldLevel) bool {
		return domainRe.MatchString(fl.Field().String())
	})
	return v
}

// CommentRequest is the raw, untrusted POST /add payload.
type CommentRequest struct {
	SiteName     string `json:"siteName"`
	PathName     string `json:"pathName"`
	Message      string `json:"message"`
	Author       string `json:"author"`
	Parent       string `json:"parent"`
	CaptchaToken string `json:"captchaToken"`
}

// CommentInput is a validated, normalized comment payload.
type CommentInput struct {
	SiteName string `validate:"required,max=100,sitename"`
	PathName string `validate:"required,max=500,pathname"`
	Message  string `validate:"required,max=10000"`
	Author   string `validate:"max=100"`
	Parent   string
}

// SiteRequest is the raw dashboard payload for creating or updating a site.
type SiteRequest struct {
	Domain string `json:"domain"`
}

// SiteInput is a validated, normalized site payload.
type SiteInput struct {
	Domain string `validate:"required,min=4,max=253,domainname"`
}

// ValidateComment checks and normalizes a comment payload. Message and
// author are trimmed; a missing author becomes DefaultAuthor; a blank parent
// is coerced to empty (no parent).
func ValidateComment(raw CommentRequest) (*CommentInput, error) {
	input := &CommentInput{
		SiteName: strings.TrimSpace(raw.SiteName),
		PathName: strings.TrimSpace(raw.PathName),
		Message:  strings.TrimSpace(raw.Message),
		Author:   strings.TrimSpace(raw.Author),
		Parent:   strings.TrimSpace(raw.Parent),
	}
	if input.Author == "" {
		input.Author = DefaultAuthor
	}

	if err := validate.Struct(input); err != nil {
		return nil, apperrors.NewValidationError(formatValidationError(err))
	}
	return input, nil
}

// ValidateSite checks and normalizes a site payload; the domain is
// lower-cased.
func ValidateSite(raw SiteRequest) (*SiteInput, error) {
	input := &SiteInput{
		Domain: strings.ToLower(strings.TrimSpace(raw.Domain)),
	}
	if err := validate.Struct(input); err != nil {
		return nil, apperrors.NewValidationError(formatValidationError(err))
	}
	return input, nil
}

// formatValidationError joins field errors into one readable message.
func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return "validation failed"
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return strings.Join(messages, ", ")
}

func formatFieldError(e validator.FieldError) string {
	field := fieldName(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s too short", field)
	case "max":
		return fmt.Sprintf("%s too long (max %s characters)", field, e.Param())
	case "sitename":
		return "invalid site ID format"
	case "pathname":
		return "invalid path characters"
	case "domainname":
		return "invalid domain format"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldName maps struct field names back to their wire names.
func fieldName(field string) string {
	switch field {
	case "SiteName":
		return "siteName"
	case "PathName":
		return "pathName"
	case "Message":
		return "message"
	case "Author":
		return "author"
	case "Domain":
		return "domain"
	default:
		return strings.ToLower(field)
	}
}
