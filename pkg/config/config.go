// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads server sections, table aliases and query macros
// from an INI or YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"sqldap/pkg/sqlerr"
)

// DefaultFilename is the file searched for when no path is given.
const DefaultFilename = "sqldap.ini"

const (
	tablesSuffix  = ".tables"
	queriesSuffix = ".queries"
)

// Environment variables read by OverrideFromEnv.
const (
	EnvServer       = "SQLDAP_SERVER"
	EnvBindPassword = "SQLDAP_BINDPASSWORD"
	EnvLogLevel     = "SQLDAP_LOG_LEVEL"
)

// Config is a loaded configuration file.
type Config struct {
	// Path is the file the configuration was read from.
	Path string `yaml:"-"`

	// DefaultServer is used when no server is named; the first server
	// section otherwise.
	DefaultServer string `yaml:"default_server"`

	Log     LogConfig `yaml:"log"`
	Servers []*Server `yaml:"servers"`
}

// LogConfig is the optional logging section.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	File     string `yaml:"file"`
}

// Server is one server section with its aliases and macros.
type Server struct {
	Name         string `yaml:"name"`
	Connection   string `yaml:"connection"`
	BindDN       string `yaml:"binddn"`
	BindPassword string `yaml:"bindpassword"`

	// TLSSkipVerify disables certificate verification. Defaults to true.
	TLSSkipVerify *bool `yaml:"tls_skip_verify"`

	// RateLimit caps new connections per second; zero means unlimited.
	RateLimit float64 `yaml:"ratelimit"`
	Burst     int     `yaml:"burst"`

	// Tables maps alias names (used as @name) to base locations.
	Tables map[string]string `yaml:"tables"`

	// Queries maps macro names (used as @name) to statement text.
	Queries map[string]string `yaml:"queries"`
}

// HasCredentials reports whether both bind DN and password are set.
func (s *Server) HasCredentials() bool {
	return s.BindDN != "" && s.BindPassword != ""
}

// VerifyTLS reports whether certificates must be verified.
func (s *Server) VerifyTLS() bool {
	return s.TLSSkipVerify != nil && !*s.TLSSkipVerify
}

// SearchPaths returns the discovery order for filename: the working
// directory, the home directory as a dot file, then /etc.
func SearchPaths(filename string) []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, filename))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+filename))
	}
	paths = append(paths, filepath.Join("/etc", filename))
	return paths
}

// Find returns the first existing file of SearchPaths(filename).
func Find(filename string) (string, error) {
	for _, p := range SearchPaths(filename) {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", sqlerr.Config("couldn't find the required config file %s", filename)
}

// LoadDefault loads path, or the first discovered file when path is empty.
func LoadDefault(path string) (*Config, error) {
	if path == "" {
		found, err := Find(DefaultFilename)
		if err != nil {
			return nil, err
		}
		path = found
	}
	return LoadConfig(path)
}

// LoadConfig loads configuration from a file. The format follows the
// extension: .yaml and .yml are YAML, anything else is INI.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sqlerr.Config("failed to read config file: %v", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	default:
		cfg, err = parseINI(data)
	}
	if err != nil {
		return nil, sqlerr.Config("failed to parse config %s: %v", path, err)
	}
	cfg.Path = path

	cfg.SetDefaults()
	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseINI reads the sqldap.ini layout:
//
//	[dirserver1]
//	connection=ldap://ldap.example.com:389
//	[dirserver1.tables]
//	people=ou=people,dc=example,dc=com
//	[dirserver1.queries]
//	locked=SELECT uid FROM @people WHERE passwordretrycount>=3
//
// Keys before the first section configure logging.
func parseINI(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:  "=",
		IgnoreInlineComment: true,
		AllowShadows:        false,
	}, data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	def := f.Section(ini.DefaultSection)
	cfg.DefaultServer = def.Key("default_server").String()
	cfg.Log.Level = def.Key("log_level").String()
	cfg.Log.Encoding = def.Key("log_encoding").String()
	cfg.Log.File = def.Key("log_file").String()

	servers := make(map[string]*Server)
	server := func(name string) *Server {
		if s, ok := servers[name]; ok {
			return s
		}
		s := &Server{Name: name}
		servers[name] = s
		cfg.Servers = append(cfg.Servers, s)
		return s
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		switch {
		case name == ini.DefaultSection:
			continue
		case strings.HasSuffix(name, tablesSuffix):
			s := server(strings.TrimSuffix(name, tablesSuffix))
			s.Tables = keyValues(sec)
		case strings.HasSuffix(name, queriesSuffix):
			s := server(strings.TrimSuffix(name, queriesSuffix))
			s.Queries = keyValues(sec)
		default:
			s := server(name)
			s.Connection = sec.Key("connection").String()
			s.BindDN = sec.Key("binddn").String()
			s.BindPassword = sec.Key("bindpassword").String()
			if sec.HasKey("tls_skip_verify") {
				v := sec.Key("tls_skip_verify").MustBool(true)
				s.TLSSkipVerify = &v
			}
			s.RateLimit = sec.Key("ratelimit").MustFloat64(0)
			s.Burst = sec.Key("burst").MustInt(0)
		}
	}
	return cfg, nil
}

// keyValues returns the section's own keys, ignoring inherited ones.
func keyValues(sec *ini.Section) map[string]string {
	out := make(map[string]string, len(sec.Keys()))
	for _, k := range sec.Keys() {
		out[k.Name()] = k.Value()
	}
	return out
}

// SetDefaults sets default values.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	for _, s := range c.Servers {
		if s.TLSSkipVerify == nil {
			skip := true
			s.TLSSkipVerify = &skip
		}
		if s.RateLimit > 0 && s.Burst <= 0 {
			s.Burst = 1
		}
		if s.Tables == nil {
			s.Tables = map[string]string{}
		}
		if s.Queries == nil {
			s.Queries = map[string]string{}
		}
	}
}

// OverrideFromEnv overrides configuration from environment variables.
// SQLDAP_BINDPASSWORD applies to every server.
func (c *Config) OverrideFromEnv() {
	if server := os.Getenv(EnvServer); server != "" {
		c.DefaultServer = server
	}
	if password := os.Getenv(EnvBindPassword); password != "" {
		for _, s := range c.Servers {
			s.BindPassword = password
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate validates the configuration. A server without connection is
// only an error once it is resolved.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return sqlerr.Config("log level must be one of: debug, info, warn, error")
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return sqlerr.Config("log encoding must be either 'json' or 'console'")
	}

	seen := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name == "" {
			return sqlerr.Config("server without a name")
		}
		if seen[s.Name] {
			return sqlerr.Config("server %s is configured twice", s.Name)
		}
		seen[s.Name] = true
		if s.RateLimit < 0 {
			return sqlerr.Config("ratelimit of server %s must be >= 0", s.Name)
		}
	}
	return nil
}

// Resolve returns the server section named name. An empty name selects
// DefaultServer, then the first section of the file.
func (c *Config) Resolve(name string) (*Server, error) {
	if name == "" {
		name = c.DefaultServer
	}
	if name == "" {
		if len(c.Servers) == 0 {
			return nil, sqlerr.Config("no server sections are configured in %s", c.Path)
		}
		name = c.Servers[0].Name
	}

	for _, s := range c.Servers {
		if s.Name != name {
			continue
		}
		if s.Connection == "" {
			return nil, sqlerr.Config("key 'connection' in section %s could not be found", name)
		}
		return s, nil
	}
	return nil, sqlerr.Config("server %s is not configured in %s", name, c.Path)
}

// ServerNames returns the server sections in file order.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for _, s := range c.Servers {
		names = append(names, s.Name)
	}
	return names
}
