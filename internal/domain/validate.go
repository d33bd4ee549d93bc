package domain

import (
	"net/url"
	"strings"
)

// User-facing messages for create validation.
const (
	MsgFieldsRequired = "URL and title are required"
	MsgInvalidURL     = "Invalid URL format"
)

// schemes that are meaningless without an authority part
var hostRequired = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
}

// ValidateNew checks the caller-supplied fields of a new bookmark.
// It returns nil or an *Error of kind KindInvalidInput.
func ValidateNew(rawURL, title string) error {
	if strings.TrimSpace(rawURL) == "" || strings.TrimSpace(title) == "" {
		return NewError(KindInvalidInput, MsgFieldsRequired, nil)
	}
	if err := ValidateURL(rawURL); err != nil {
		return err
	}
	return nil
}

// ValidateURL accepts absolute URLs only: a scheme is mandatory and
// network schemes must carry a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return NewError(KindInvalidInput, MsgInvalidURL, err)
	}
	if u.Scheme == "" {
		return NewError(KindInvalidInput, MsgInvalidURL, nil)
	}
	if hostRequired[strings.ToLower(u.Scheme)] && u.Host == "" {
		return NewError(KindInvalidInput, MsgInvalidURL, nil)
	}
	if u.Opaque == "" && u.Host == "" && u.Path == "" {
		return NewError(KindInvalidInput, MsgInvalidURL, nil)
	}
	return nil
}
