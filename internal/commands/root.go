// Package commands implements the foundry command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	foundry "github.com/foundry-samples/foundry-go"
)

// App carries what the commands share. Zero values fall back to stdout,
// a logrus logger on stderr and DefaultAzureCredential.
type App struct {
	Out io.Writer
	Log *logrus.Logger

	// Credential overrides DefaultAzureCredential for both planes.
	Credential azcore.TokenCredential

	// ManagementEndpoint overrides the public ARM endpoint.
	ManagementEndpoint string

	v *viper.Viper
}

// NewRootCmd builds the command tree.
func NewRootCmd(app *App, version string) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Log == nil {
		app.Log = logrus.New()
		app.Log.SetOutput(os.Stderr)
	}
	app.v = viper.New()
	app.v.SetEnvPrefix("FOUNDRY")
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()
	// The SDK reads FOUNDRY_POLL_INTERVAL as seconds; keep the CLI's duration
	// flag apart. FOUNDRY_CLI_POLL_INTERVAL takes a unit, e.g. 2s.
	_ = app.v.BindEnv("poll-interval", "FOUNDRY_CLI_POLL_INTERVAL")

	root := &cobra.Command{
		Use:   "foundry",
		Short: "Run Azure AI Foundry agent samples",
		Long: `foundry drives the Azure AI Foundry agent service and its management API.

Commands:
  translate                 Create a translator agent, ask it one question, print the thread
  create-search-connection  Connect an account to an Azure AI Search service
  create-project            Create a project under an account

Configuration is read from flags, FOUNDRY_* environment variables and an
optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := app.v.BindPFlags(cmd.InheritedFlags()); err != nil {
				return err
			}
			if err := app.loadEnvFile(cmd); err != nil {
				return err
			}
			app.configureLogging()
			return nil
		},
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging, including HTTP traffic")
	root.PersistentFlags().Bool("log-json", false, "Log as JSON")
	root.PersistentFlags().String("env-file", ".env", "Load environment variables from this file if it exists")
	root.SetOut(app.Out)

	root.AddCommand(newTranslateCmd(app))
	root.AddCommand(newSearchConnectionCmd(app))
	root.AddCommand(newProjectCmd(app))
	return root
}

func (a *App) loadEnvFile(cmd *cobra.Command) error {
	path := a.v.GetString("env-file")
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		a.Log.WithField("path", path).Debug("loaded env file")
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func (a *App) configureLogging() {
	if a.v.GetBool("log-json") {
		a.Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		a.Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if a.v.GetBool("verbose") {
		a.Log.SetLevel(logrus.DebugLevel)
	} else {
		a.Log.SetLevel(logrus.InfoLevel)
	}
}

// clientParams carries the shared SDK options for both planes.
func (a *App) clientParams() (foundry.ConfigParams, error) {
	poll, err := a.duration("poll-interval")
	if err != nil {
		return foundry.ConfigParams{}, err
	}
	verbose := a.v.GetBool("verbose")
	return foundry.ConfigParams{
		Credential:   a.Credential,
		Debug:        &verbose,
		Logger:       a.Log,
		PollInterval: poll,
	}, nil
}

// duration reads a duration flag or its env variable. Values need a unit:
// viper would read a bare "2" as two nanoseconds.
func (a *App) duration(name string) (time.Duration, error) {
	raw := strings.TrimSpace(a.v.GetString(name))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: give a unit, e.g. 2s or 500ms", name, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid --%s %q: must not be negative", name, raw)
	}
	return d, nil
}

func (a *App) managementClient() (*foundry.ManagementClient, error) {
	params, err := a.clientParams()
	if err != nil {
		return nil, err
	}
	params.Endpoint = a.ManagementEndpoint
	return foundry.NewManagementClientWithParams(a.v.GetString("subscription"), params)
}

// required returns the named values or an error listing the missing flags.
func (a *App) required(names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(a.v.GetString(name)) == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}
