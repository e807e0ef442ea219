package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/connector/registry"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/logger"
	"github.com/ajitpratap0/idbridge/pkg/observability"

	// Register the connectors
	_ "github.com/ajitpratap0/idbridge/pkg/connector/mysql"
	_ "github.com/ajitpratap0/idbridge/pkg/connector/oracleerp"
	_ "github.com/ajitpratap0/idbridge/pkg/connector/solaris"
)

var version = "0.1.0"

const envPrefix = "IDBRIDGE"

// cli holds state shared by the subcommands
type cli struct {
	v           *viper.Viper
	stopTracing func(context.Context) error
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	c := &cli{v: newViper()}
	if err := c.rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "idbridge",
		Short: "idbridge - identity provisioning connectors",
		Long: `idbridge manages accounts on MySQL servers, Oracle E-Business Suite and
Solaris hosts through one provisioning interface.

Connector settings are read from a YAML file. Any setting can be overridden
with an IDBRIDGE_<SETTING> environment variable, for example
IDBRIDGE_PASSWORD or IDBRIDGE_TIMEOUTS_REQUEST.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Path to the connector configuration YAML file")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "Log encoding (console, json)")
	flags.Bool("trace", false, "Export operation spans to stderr")
	_ = c.v.BindPFlag("config", flags.Lookup("config"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log_encoding", flags.Lookup("log-encoding"))
	_ = c.v.BindPFlag("trace", flags.Lookup("trace"))

	root.AddCommand(
		c.versionCommand(),
		c.listCommand(),
		c.schemaCommand(),
		c.testCommand(),
		c.createCommand(),
		c.updateCommand(),
		c.deleteCommand(),
		c.searchCommand(),
		c.getCommand(),
		c.authenticateCommand(),
		c.monitorCommand(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	err := logger.Init(logger.Config{
		Level:    c.v.GetString("log_level"),
		Encoding: c.v.GetString("log_encoding"),
	})
	if err != nil {
		return err
	}

	if c.v.GetBool("trace") {
		stop, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "idbridge",
			ServiceVersion: version,
			SamplingRate:   1,
			Writer:         os.Stderr,
			PrettyPrint:    true,
		})
		if err != nil {
			return err
		}
		c.stopTracing = stop
	}
	logger.Debug("command started", zap.String("command", cmd.CommandPath()))
	return nil
}

func (c *cli) teardown(ctx context.Context) error {
	if c.stopTracing != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.stopTracing(ctx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

// secretKeys are connector settings commonly kept out of the file and
// supplied only through the environment
var secretKeys = []string{"password", "root_password", "private_key", "passphrase"}

// settings reads the connector configuration file. IDBRIDGE_* variables
// override file values; nested keys are joined with underscores, so
// IDBRIDGE_TIMEOUTS_REQUEST sets timeouts.request.
func (c *cli) settings() (map[string]interface{}, error) {
	path := c.v.GetString("config")
	if path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "--config is required")
	}

	fv := newViper()
	fv.SetConfigFile(path)
	fv.SetConfigType("yaml")
	if err := fv.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read "+path)
	}
	for _, key := range secretKeys {
		_ = fv.BindEnv(key)
	}
	return fv.AllSettings(), nil
}

// connector builds and initializes the configured connector
func (c *cli) connector(ctx context.Context) (core.Connector, error) {
	settings, err := c.settings()
	if err != nil {
		return nil, err
	}
	conn, err := registry.CreateFromMap(settings)
	if err != nil {
		return nil, err
	}
	if err := conn.Initialize(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}
	return conn, nil
}

// withConnector runs fn on an initialized connector and closes it afterwards
func (c *cli) withConnector(cmd *cobra.Command, fn func(ctx context.Context, conn core.Connector) error) error {
	ctx := cmd.Context()
	conn, err := c.connector(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(context.Background()); cerr != nil {
			logger.Warn("failed to close connector", zap.Error(cerr))
		}
	}()
	return fn(ctx, conn)
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "idbridge v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), registry.List())
		},
	}
}

// exitCode maps provisioning outcomes to distinct exit codes for scripts
func exitCode(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeUnknownUid:
		return 3
	case errors.ErrorTypeAlreadyExists:
		return 4
	case errors.ErrorTypeInvalidAttribute, errors.ErrorTypeValidation, errors.ErrorTypeConfig:
		return 5
	case errors.ErrorTypeInvalidCredential, errors.ErrorTypeAuthentication, errors.ErrorTypePermission:
		return 6
	case errors.ErrorTypeUnsupported:
		return 7
	case errors.ErrorTypeConnection, errors.ErrorTypeTimeout:
		return 8
	}
	return 1
}
