package fill

import (
	"errors"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/page"
)

// ErrNoLoginForm is returned when a page has no username and password pair.
var ErrNoLoginForm = errors.New("no login form found")

var usernameHints = []string{"user", "name", "email", "account", "用户", "账号", "邮箱"}

// PlanLogin plans filling a login form with the given credentials.
func PlanLogin(descs []page.PageInputDescriptor, username, password string) (Plan, error) {
	var user, pass *page.PageInputDescriptor
	for i := range descs {
		d := &descs[i]
		if !d.IsFillable() || d.ElementKind != page.KindInput {
			continue
		}
		switch {
		case pass == nil && isPasswordField(d):
			pass = d
		case user == nil && isUsernameField(d):
			user = d
		}
	}
	if user == nil || pass == nil {
		return newPlan(len(descs), nil), ErrNoLoginForm
	}

	return newPlan(len(descs), []Action{
		{XPath: user.XPath, Kind: ActionSetValue, Value: username, Key: "username"},
		{XPath: pass.XPath, Kind: ActionSetValue, Value: password, Key: "password"},
	}), nil
}

func isPasswordField(d *page.PageInputDescriptor) bool {
	if d.InputType == "password" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), "password") ||
		strings.Contains(strings.ToLower(d.ID), "password")
}

func isUsernameField(d *page.PageInputDescriptor) bool {
	if d.InputType != "text" && d.InputType != "email" {
		return false
	}
	haystack := strings.ToLower(d.Name + " " + d.ID + " " + d.Placeholder)
	for _, hint := range usernameHints {
		if strings.Contains(haystack, hint) {
			return true
		}
	}
	return false
}
