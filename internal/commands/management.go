package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	foundry "github.com/foundry-samples/foundry-go"
)

const defaultSearchConnectionName = "myaisearchconnection"

func addAccountFlags(cmd *cobra.Command) {
	cmd.Flags().String("subscription", "", "Azure subscription ID")
	cmd.Flags().String("resource-group", "", "Resource group of the account")
	cmd.Flags().String("account", "", "AI Services account name")
	cmd.Flags().String("location", "", "Azure region, e.g. westus")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "Delay between provisioning checks")
}

func newSearchConnectionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-search-connection",
		Short: "Connect an account to an Azure AI Search service with an admin key",
		Example: `  FOUNDRY_SEARCH_API_KEY=... foundry create-search-connection \
    --subscription 0000-... --resource-group rg --account my-ais \
    --search-service my-search --location westus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSearchConnection(cmd.Context())
		},
	}
	addAccountFlags(cmd)
	cmd.Flags().String("search-service", "", "Azure AI Search service name")
	cmd.Flags().String("name", defaultSearchConnectionName, "Connection name")
	cmd.Flags().String("api-key", "", "Search admin key (or FOUNDRY_SEARCH_API_KEY)")
	_ = app.v.BindEnv("api-key", "FOUNDRY_SEARCH_API_KEY")
	return cmd
}

func (a *App) runSearchConnection(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.required("subscription", "resource-group", "account", "search-service", "location", "api-key"); err != nil {
		return err
	}

	conn, err := foundry.NewSearchConnection(foundry.SearchConnectionParams{
		SubscriptionID:    a.v.GetString("subscription"),
		ResourceGroup:     a.v.GetString("resource-group"),
		SearchServiceName: a.v.GetString("search-service"),
		APIKey:            a.v.GetString("api-key"),
		Location:          a.v.GetString("location"),
	})
	if err != nil {
		return err
	}

	client, err := a.managementClient()
	if err != nil {
		return err
	}
	defer client.Close()

	name := a.v.GetString("name")
	created, err := client.Connections.CreateWithContext(ctx, a.v.GetString("resource-group"), a.v.GetString("account"), name, conn)
	if err != nil {
		return err
	}
	a.Log.WithFields(logrus.Fields{"connection": name, "target": created.Properties.Target}).Debug("connection created")
	fmt.Fprintf(a.Out, "Created connection, ID: %s\n", created.ID)
	return nil
}

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-project",
		Short: "Create a project under an AI Services account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runCreateProject(cmd.Context())
		},
	}
	addAccountFlags(cmd)
	cmd.Flags().String("project", "", "Project name")
	cmd.Flags().String("display-name", "My Sample Project", "Project display name")
	cmd.Flags().String("description", "A project created using the Go SDK", "Project description")
	cmd.Flags().Bool("wait", false, "Wait until provisioning finishes")
	cmd.Flags().Duration("wait-timeout", 10*time.Minute, "Give up waiting after this long")
	return cmd
}

func (a *App) runCreateProject(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.required("subscription", "resource-group", "account", "project", "location"); err != nil {
		return err
	}
	poll, err := a.duration("poll-interval")
	if err != nil {
		return err
	}
	waitTimeout, err := a.duration("wait-timeout")
	if err != nil {
		return err
	}
	client, err := a.managementClient()
	if err != nil {
		return err
	}
	defer client.Close()

	rg, account, name := a.v.GetString("resource-group"), a.v.GetString("account"), a.v.GetString("project")
	fmt.Fprintln(a.Out, "Creating project...")
	project, err := client.Projects.CreateWithContext(ctx, rg, account, name, foundry.ProjectResource{
		Location: a.v.GetString("location"),
		Properties: foundry.ProjectProperties{
			DisplayName: a.v.GetString("display-name"),
			Description: a.v.GetString("description"),
		},
	})
	if err != nil {
		return err
	}

	if a.v.GetBool("wait") && !project.Properties.ProvisioningState.IsTerminal() {
		project, err = client.Projects.WaitForProvisioning(ctx, rg, account, name, poll, waitTimeout)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(a.Out, "Project created successfully!")
	fmt.Fprintf(a.Out, "Project Name: %s\n", project.Name)
	fmt.Fprintf(a.Out, "Project ID: %s\n", project.ID)
	fmt.Fprintf(a.Out, "Description: %s\n", project.Properties.Description)
	fmt.Fprintf(a.Out, "Provisioning State: %s\n", project.Properties.ProvisioningState)
	return nil
}
