package handler

import (
	"errors"
	"fmt"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// providerDeniedError is a callback on which the provider reported an error
// instead of a code, typically because the user cancelled. The provider's
// text is logged but never rendered.
type providerDeniedError struct {
	reason      string
	description string
}

func (e *providerDeniedError) Error() string {
	if e.description != "" {
		return fmt.Sprintf("provider returned %s: %s", e.reason, e.description)
	}
	return "provider returned " + e.reason
}

// message is the fixed text shown for a denied callback.
func (e *providerDeniedError) message() string {
	if e.reason == "access_denied" {
		return "authorization was cancelled"
	}
	return "authorization failed"
}

// errorMessage maps an error to the short diagnostic shown on the Error page.
func errorMessage(err error) string {
	var denied *providerDeniedError
	if errors.As(err, &denied) {
		return denied.message()
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Error()
	}

	if cause := domain.ValidationCause(err); cause != nil {
		return cause.Error()
	}

	return err.Error()
}
