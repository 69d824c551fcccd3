// Package assetstorage authorizes access to privately stored survey assets.
//
// It classifies storage URLs into containers, mints read tokens in bulk
// through a sas.Minter, and rewrites the asset references embedded in survey
// documents (or raw serialized text) so that browsers can fetch them without
// long-lived credentials.
package assetstorage

import "strings"

// ContainerType is the logical role of a storage container.
type ContainerType string

const (
	ContainerUserFiles ContainerType = "USER_FILES"
	ContainerContent   ContainerType = "CONTENT"
)

// ContainerNames maps the logical containers onto their physical names.
type ContainerNames struct {
	UserFiles string
	Content   string
}

// Config is the process-wide storage configuration. Build it with NewConfig
// and pass it by value; nothing in this package mutates it.
type Config struct {
	Enabled        bool
	Private        bool
	HostName       string
	ContainerNames ContainerNames
}

// NewConfig normalises host and container names to lower case.
func NewConfig(enabled, private bool, hostName string, names ContainerNames) Config {
	return Config{
		Enabled:  enabled,
		Private:  private,
		HostName: normalizeName(hostName),
		ContainerNames: ContainerNames{
			UserFiles: normalizeName(names.UserFiles),
			Content:   normalizeName(names.Content),
		},
	}
}

// ContainerName returns the physical name for a logical container.
func (c Config) ContainerName(typ ContainerType) string {
	switch typ {
	case ContainerUserFiles:
		return c.ContainerNames.UserFiles
	case ContainerContent:
		return c.ContainerNames.Content
	default:
		return ""
	}
}

// containerType resolves a physical container name. The second return is
// false for containers that are not configured.
func (c Config) containerType(name string) (ContainerType, bool) {
	name = normalizeName(name)
	if name == "" {
		return "", false
	}
	switch name {
	case c.ContainerNames.UserFiles:
		return ContainerUserFiles, true
	case c.ContainerNames.Content:
		return ContainerContent, true
	default:
		return "", false
	}
}

// ResolveContainer accepts either a physical container name or a logical
// type (USER_FILES, CONTENT) and returns the physical name.
func (c Config) ResolveContainer(name string) (string, bool) {
	if _, ok := c.containerType(name); ok {
		return normalizeName(name), true
	}
	switch ContainerType(strings.ToUpper(strings.TrimSpace(name))) {
	case ContainerUserFiles:
		return c.ContainerNames.UserFiles, c.ContainerNames.UserFiles != ""
	case ContainerContent:
		return c.ContainerNames.Content, c.ContainerNames.Content != ""
	}
	return "", false
}

// Containers lists the configured physical container names.
func (c Config) Containers() []string {
	out := make([]string, 0, 2)
	for _, name := range []string{c.ContainerNames.UserFiles, c.ContainerNames.Content} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
