// Package settingsapi is a client for the filtering proxy's remote settings API.
package settingsapi

import (
	"errors"
	"fmt"
)

// Credentials is the login and registration payload. The API accepts it in
// plain text; there is no token exchange beyond the session cookie.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Content is the allowed content-type policy of one domain.
type Content struct {
	DomainName string   `json:"domain_name"`
	Content    []string `json:"content"`
}

// PluginLists holds the two plugin stages in execution order.
type PluginLists struct {
	Request  []string `json:"request_plugins_list"`
	Response []string `json:"response_plugins_list"`
}

type authCheck struct {
	Authenticated bool `json:"authenticated"`
}

type domainBody struct {
	Domain string `json:"domain"`
}

type contentBody struct {
	DomainName string `json:"domain_name"`
	Content    string `json:"content"`
}

type pluginBody struct {
	PluginName string `json:"plugin_name"`
}

// ErrRejected matches every StatusError.
var ErrRejected = errors.New("request rejected by settings api")

// ErrIncompleteLists is returned when the plugin listing lacks one of the stages.
var ErrIncompleteLists = errors.New("plugin listing is missing a stage")

// StatusError reports a non-2xx answer of the settings API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is makes errors.Is(err, ErrRejected) true for any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}
