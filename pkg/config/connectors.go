package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// MySQLConfig contains configuration for the MySQL user connector
type MySQLConfig struct {
	BaseConfig `yaml:",inline" json:",inline" mapstructure:",squash"`

	Host     string `yaml:"host" json:"host" mapstructure:"host" required:"true"`
	Port     int    `yaml:"port" json:"port" mapstructure:"port" default:"3306"`
	User     string `yaml:"user" json:"user" mapstructure:"user" required:"true"`
	Password string `yaml:"password" json:"-" mapstructure:"password"`
	Database string `yaml:"database" json:"database" mapstructure:"database" default:"mysql"`

	// UserModel is the account whose grants are copied to every new account
	UserModel string `yaml:"user_model" json:"user_model" mapstructure:"user_model" default:"BASIC_RIGHTS_USER"`
	// UserHost is the host part of managed accounts ('name'@'host')
	UserHost string `yaml:"user_host" json:"user_host" mapstructure:"user_host" default:"%"`
	// ExcludedUsers are never returned by searches
	ExcludedUsers []string `yaml:"excluded_users" json:"excluded_users" mapstructure:"excluded_users"`
}

// NewMySQLConfig returns a MySQL configuration with defaults applied
func NewMySQLConfig(name string) *MySQLConfig {
	c := &MySQLConfig{BaseConfig: *NewBaseConfig(name, "mysql")}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values
func (c *MySQLConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Database == "" {
		c.Database = "mysql"
	}
	if c.UserModel == "" {
		c.UserModel = "BASIC_RIGHTS_USER"
	}
	if c.UserHost == "" {
		c.UserHost = "%"
	}
	if len(c.ExcludedUsers) == 0 {
		c.ExcludedUsers = []string{"root", c.UserModel}
	}
}

// Validate reports every configuration problem
func (c *MySQLConfig) Validate() error {
	err := c.BaseConfig.Validate()
	err = multierr.Append(err, requireField("host", c.Host))
	err = multierr.Append(err, requireField("user", c.User))
	err = multierr.Append(err, validPort(c.Port))
	return err
}

// OracleERPConfig contains configuration for the Oracle ERP connector
type OracleERPConfig struct {
	BaseConfig `yaml:",inline" json:",inline" mapstructure:",squash"`

	Host     string `yaml:"host" json:"host" mapstructure:"host" required:"true"`
	Port     int    `yaml:"port" json:"port" mapstructure:"port" default:"1521"`
	Service  string `yaml:"service" json:"service" mapstructure:"service" required:"true"`
	User     string `yaml:"user" json:"user" mapstructure:"user" required:"true"`
	Password string `yaml:"password" json:"-" mapstructure:"password"`

	// AppsSchema owns FND_USER and fnd_user_pkg
	AppsSchema string `yaml:"apps_schema" json:"apps_schema" mapstructure:"apps_schema" default:"APPS"`
	// AccountsIncluded is an extra SQL condition appended to account searches
	AccountsIncluded string `yaml:"accounts_included" json:"accounts_included" mapstructure:"accounts_included"`
	// ActiveAccountsOnly hides end-dated accounts from searches
	ActiveAccountsOnly bool `yaml:"active_accounts_only" json:"active_accounts_only" mapstructure:"active_accounts_only"`
	// ReturnResponsibilities includes responsibilities in search results by default
	ReturnResponsibilities *bool `yaml:"return_responsibilities" json:"return_responsibilities" mapstructure:"return_responsibilities"`
	// DefaultOwner is bound to x_owner when the owner attribute is absent
	DefaultOwner string `yaml:"default_owner" json:"default_owner" mapstructure:"default_owner" default:"CUST"`
}

// NewOracleERPConfig returns an Oracle ERP configuration with defaults applied
func NewOracleERPConfig(name string) *OracleERPConfig {
	c := &OracleERPConfig{BaseConfig: *NewBaseConfig(name, "oracleerp")}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values
func (c *OracleERPConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	if c.Port == 0 {
		c.Port = 1521
	}
	if c.AppsSchema == "" {
		c.AppsSchema = "APPS"
	}
	if c.DefaultOwner == "" {
		c.DefaultOwner = "CUST"
	}
	if c.ReturnResponsibilities == nil {
		v := true
		c.ReturnResponsibilities = &v
	}
}

// Validate reports every configuration problem
func (c *OracleERPConfig) Validate() error {
	err := c.BaseConfig.Validate()
	err = multierr.Append(err, requireField("host", c.Host))
	err = multierr.Append(err, requireField("service", c.Service))
	err = multierr.Append(err, requireField("user", c.User))
	err = multierr.Append(err, validPort(c.Port))
	if strings.ContainsAny(c.AppsSchema, " ;.'\"") {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "apps_schema must be a plain schema name"))
	}
	if strings.Contains(c.AccountsIncluded, ";") {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "accounts_included must be a single SQL condition"))
	}
	return err
}

// Solaris connection types
const (
	ConnectionTypeSSH       = "ssh"
	ConnectionTypeSSHPubKey = "ssh-pubkey"
)

// Solaris system database types
const (
	SystemDatabaseFiles = "files"
	SystemDatabaseNIS   = "nis"
)

// SolarisConfig contains configuration for the Solaris shell connector
type SolarisConfig struct {
	BaseConfig `yaml:",inline" json:",inline" mapstructure:",squash"`

	Host           string `yaml:"host" json:"host" mapstructure:"host" required:"true"`
	Port           int    `yaml:"port" json:"port" mapstructure:"port" default:"22"`
	ConnectionType string `yaml:"connection_type" json:"connection_type" mapstructure:"connection_type" default:"ssh"`
	LoginUser      string `yaml:"login_user" json:"login_user" mapstructure:"login_user" required:"true"`
	Password       string `yaml:"password" json:"-" mapstructure:"password"`
	PrivateKey     string `yaml:"private_key" json:"-" mapstructure:"private_key"`
	Passphrase     string `yaml:"passphrase" json:"-" mapstructure:"passphrase"`
	KnownHostsFile string `yaml:"known_hosts_file" json:"known_hosts_file" mapstructure:"known_hosts_file"`

	// RootUser is switched to with su after login when set
	RootUser     string `yaml:"root_user" json:"root_user" mapstructure:"root_user"`
	RootPassword string `yaml:"root_password" json:"-" mapstructure:"root_password"`

	LoginShellPrompt string `yaml:"login_shell_prompt" json:"login_shell_prompt" mapstructure:"login_shell_prompt" default:"$"`
	RootShellPrompt  string `yaml:"root_shell_prompt" json:"root_shell_prompt" mapstructure:"root_shell_prompt" default:"#"`

	// SudoAuthorization prefixes privileged commands with sudo
	SudoAuthorization bool `yaml:"sudo_authorization" json:"sudo_authorization" mapstructure:"sudo_authorization"`

	MakeDirectory       bool   `yaml:"make_directory" json:"make_directory" mapstructure:"make_directory"`
	HomeBaseDirectory   string `yaml:"home_base_directory" json:"home_base_directory" mapstructure:"home_base_directory"`
	DefaultPrimaryGroup string `yaml:"default_primary_group" json:"default_primary_group" mapstructure:"default_primary_group"`
	LoginShell          string `yaml:"login_shell" json:"login_shell" mapstructure:"login_shell"`
	DeleteHomeDirectory bool   `yaml:"delete_home_directory" json:"delete_home_directory" mapstructure:"delete_home_directory"`

	SystemDatabaseType string `yaml:"system_database_type" json:"system_database_type" mapstructure:"system_database_type" default:"files"`
	NISPwdDir          string `yaml:"nis_pwd_dir" json:"nis_pwd_dir" mapstructure:"nis_pwd_dir" default:"/var/yp/src"`
	NISBuildDirectory  string `yaml:"nis_build_directory" json:"nis_build_directory" mapstructure:"nis_build_directory" default:"/var/yp"`
	NISShadow          bool   `yaml:"nis_shadow" json:"nis_shadow" mapstructure:"nis_shadow"`
}

// NewSolarisConfig returns a Solaris configuration with defaults applied
func NewSolarisConfig(name string) *SolarisConfig {
	c := &SolarisConfig{BaseConfig: *NewBaseConfig(name, "solaris")}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values
func (c *SolarisConfig) ApplyDefaults() {
	c.BaseConfig.ApplyDefaults()
	if c.Port == 0 {
		c.Port = 22
	}
	if c.ConnectionType == "" {
		c.ConnectionType = ConnectionTypeSSH
	}
	if c.LoginShellPrompt == "" {
		c.LoginShellPrompt = "$"
	}
	if c.RootShellPrompt == "" {
		c.RootShellPrompt = "#"
	}
	if c.SystemDatabaseType == "" {
		c.SystemDatabaseType = SystemDatabaseFiles
	}
	if c.NISPwdDir == "" {
		c.NISPwdDir = "/var/yp/src"
	}
	if c.NISBuildDirectory == "" {
		c.NISBuildDirectory = "/var/yp"
	}
}

// IsNIS reports whether accounts are managed through NIS source files
func (c *SolarisConfig) IsNIS() bool {
	return c.SystemDatabaseType == SystemDatabaseNIS
}

// Validate reports every configuration problem
func (c *SolarisConfig) Validate() error {
	err := c.BaseConfig.Validate()
	err = multierr.Append(err, requireField("host", c.Host))
	err = multierr.Append(err, requireField("login_user", c.LoginUser))
	err = multierr.Append(err, validPort(c.Port))

	switch c.ConnectionType {
	case ConnectionTypeSSH:
		err = multierr.Append(err, requireField("password", c.Password))
	case ConnectionTypeSSHPubKey:
		err = multierr.Append(err, requireField("private_key", c.PrivateKey))
	default:
		err = multierr.Append(err, errors.Newf(errors.ErrorTypeConfig, "unknown connection_type %q", c.ConnectionType))
	}

	switch c.SystemDatabaseType {
	case SystemDatabaseFiles, SystemDatabaseNIS:
	default:
		err = multierr.Append(err, errors.Newf(errors.ErrorTypeConfig, "unknown system_database_type %q", c.SystemDatabaseType))
	}

	if c.RootUser != "" && c.RootPassword == "" {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "root_password is required when root_user is set"))
	}
	if c.SudoAuthorization && c.RootUser != "" {
		err = multierr.Append(err, errors.New(errors.ErrorTypeConfig, "sudo_authorization and root_user are mutually exclusive"))
	}
	return err
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("%s is required", name))
	}
	return nil
}

func validPort(port int) error {
	if port <= 0 || port > 65535 {
		return errors.Newf(errors.ErrorTypeConfig, "port %d is out of range", port)
	}
	return nil
}
