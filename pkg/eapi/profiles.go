/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package eapi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"
	"gopkg.in/ini.v1"
)

const (
	profileSectionPrefix = "connection:"

	transportHTTPS = "https"
	transportHTTP  = "http"

	defaultTimeout = 60 * time.Second
)

// Profile holds the connection parameters for one device.
type Profile struct {
	Name               string
	Host               string
	Port               int
	Transport          string
	Username           string
	Password           string
	EnablePassword     string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Endpoint returns the command-api URL for the profile.
func (p *Profile) Endpoint() string {
	return fmt.Sprintf("%s://%s:%d/command-api", p.Transport, p.Host, p.Port)
}

// Profiles is a set of connection profiles keyed by name.
type Profiles map[string]*Profile

// Lookup returns the profile for name.
func (p Profiles) Lookup(name string) (*Profile, error) {
	profile, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	return profile, nil
}

// DefaultProfilesPath returns $EAPI_CONF, or ~/.eapi.conf when unset.
func DefaultProfilesPath() string {
	if path := os.Getenv("EAPI_CONF"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".eapi.conf")
}

// LoadProfiles reads a nodes.conf style INI file. Every [connection:<name>]
// section becomes a profile; keys missing from a section fall back to
// [DEFAULT].
func LoadProfiles(path string) (Profiles, error) {
	if path == "" {
		path = DefaultProfilesPath()
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from '%s': %w", path, err)
	}

	defaults := cfg.Section(ini.DefaultSection)
	profiles := make(Profiles)

	for _, sec := range cfg.Sections() {
		if !strings.HasPrefix(sec.Name(), profileSectionPrefix) {
			continue
		}

		name := strings.TrimPrefix(sec.Name(), profileSectionPrefix)

		profile, err := profileFromSection(name, sec, defaults)
		if err != nil {
			return nil, err
		}

		profiles[name] = profile
	}

	return profiles, nil
}

func profileFromSection(name string, sec, defaults *ini.Section) (*Profile, error) {
	get := func(key string) *ini.Key {
		if sec.HasKey(key) {
			return sec.Key(key)
		}

		return defaults.Key(key)
	}

	profile := &Profile{
		Name:               name,
		Host:               get("host").MustString(name),
		Transport:          strings.ToLower(get("transport").MustString(transportHTTPS)),
		Username:           get("username").MustString("admin"),
		Password:           get("password").String(),
		EnablePassword:     get("enablepwd").String(),
		InsecureSkipVerify: get("insecure_skip_verify").MustBool(true),
		Timeout:            time.Duration(get("timeout").MustInt(int(defaultTimeout/time.Second))) * time.Second,
	}

	switch profile.Transport {
	case transportHTTPS:
		profile.Port = 443
	case transportHTTP:
		profile.Port = 80
	default:
		return nil, fmt.Errorf("%w: %s (profile %s)", ErrUnsupportedTransport, profile.Transport, name)
	}

	if key := get("port"); key.String() != "" {
		port, err := key.Int()
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: %s has bad port %q", errInvalidProfile, name, key.String())
		}

		profile.Port = port
	}

	return profile, nil
}

// PromptPassword asks for the profile password on in when none is configured
// and in is a terminal.
func PromptPassword(profile *Profile, in *os.File, out io.Writer) error {
	if profile.Password != "" || in == nil {
		return nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprintf(out, "Password for %s@%s: ", profile.Username, profile.Host)

	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)

	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	profile.Password = string(secret)

	return nil
}
