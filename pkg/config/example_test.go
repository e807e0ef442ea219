package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/ajitpratap0/idbridge/pkg/config"
)

// ExampleNewBaseConfig demonstrates the shared defaults.
func ExampleNewBaseConfig() {
	cfg := config.NewBaseConfig("hr-mysql", "mysql")

	fmt.Printf("Retry Attempts: %d\n", cfg.Reliability.RetryAttempts)
	fmt.Printf("Connection Timeout: %s\n", cfg.Timeouts.Connection)
	fmt.Printf("Request Timeout: %s\n", cfg.Timeouts.Request)

	// Output:
	// Retry Attempts: 3
	// Connection Timeout: 30s
	// Request Timeout: 1m0s
}

// ExampleMySQLConfig_Validate shows how to validate a configuration before use.
func ExampleMySQLConfig_Validate() {
	cfg := config.NewMySQLConfig("hr-mysql")
	cfg.Host = "db.internal"
	cfg.User = "idadmin"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Configuration is valid!")
	fmt.Println(cfg.ExcludedUsers)

	// Output:
	// Configuration is valid!
	// [root BASIC_RIGHTS_USER]
}

// ExampleParse demonstrates YAML parsing with environment variable substitution.
func ExampleParse() {
	os.Setenv("EXAMPLE_SOLARIS_PASSWORD", "s3cret")
	defer os.Unsetenv("EXAMPLE_SOLARIS_PASSWORD")

	data := []byte(`
name: sol10
type: solaris
host: sol10.example.com
login_user: idm
password: ${EXAMPLE_SOLARIS_PASSWORD}
sudo_authorization: true
`)

	var cfg config.SolarisConfig
	if err := config.Parse(data, &cfg); err != nil {
		log.Fatal(err)
	}
	cfg.ApplyDefaults()

	fmt.Println(cfg.Host, cfg.Port, cfg.Password, cfg.SudoAuthorization, cfg.SystemDatabaseType)

	// Output:
	// sol10.example.com 22 s3cret true files
}
