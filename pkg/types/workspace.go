package types

import (
	"fmt"
	"regexp"
)

var workspacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Workspace is the tenant key every storage call is scoped by.
type Workspace string

func (w Workspace) String() string {
	return string(w)
}

func (w Workspace) Validate() error {
	if !workspacePattern.MatchString(string(w)) {
		return fmt.Errorf("invalid workspace %q, expected [A-Za-z0-9_-]{1,64}", string(w))
	}
	return nil
}

// Key builds a backend key of the form <workspace>:<namespace>:<id>.
// Workspaces cannot contain ':' so prefixes of different workspaces never overlap.
func (w Workspace) Key(ns Namespace, id string) string {
	return fmt.Sprintf("%s:%s:%s", w, ns, id)
}

func (w Workspace) Prefix(ns Namespace) string {
	return fmt.Sprintf("%s:%s:", w, ns)
}
