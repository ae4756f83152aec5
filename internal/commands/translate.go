package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	foundry "github.com/foundry-samples/foundry-go"
	"github.com/foundry-samples/foundry-go/internal/binding"
	"github.com/foundry-samples/foundry-go/internal/settings"
)

const (
	translatorToolName        = "translator_api"
	translatorToolDescription = "An API that can translate text."
	translatorAgentName       = "ms-translator"
	translatorInstructions    = "You are a translation agent. The user can use any language to interface with you and please answer in the same language as the user used. " +
		"Any translation asks must be performed via a call to the translator_api. In case of failure to call the translator_api indicate what was the failure"
	defaultTranslateMessage = "Translate this Chinese poem to English: 白日依山尽，黄河入海流"
)

func newTranslateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Create a translator agent backed by an OpenAPI tool and run one message through it",
		Example: `  foundry translate --config config.yaml --spec translator.json
  foundry translate --message "Traduis: good morning" --keep-agent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runTranslate(cmd.Context())
		},
	}
	cmd.Flags().String("config", "config.yaml", "YAML file with project_endpoint, connection_id and model_name")
	cmd.Flags().String("spec", "translator.json", "OpenAPI document template for the translator tool")
	cmd.Flags().String("message", defaultTranslateMessage, "User message to send")
	cmd.Flags().Bool("keep-agent", false, "Do not delete the agent when done")
	cmd.Flags().Duration("poll-interval", time.Second, "Delay between run status checks")
	cmd.Flags().Duration("run-timeout", 0, "Give up waiting for the run after this long (0 waits forever)")
	return cmd
}

func (a *App) runTranslate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runTimeout, err := a.duration("run-timeout")
	if err != nil {
		return err
	}
	cfg, err := settings.Load(a.v.GetString("config"))
	if err != nil {
		return err
	}

	specPath := a.v.GetString("spec")
	template, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("read openapi spec %s: %w", specPath, err)
	}
	tool, err := foundry.NewOpenAPIToolWithContext(ctx, foundry.OpenAPIToolParams{
		Name:        translatorToolName,
		Description: translatorToolDescription,
		Spec:        []byte(binding.Bind(string(template), cfg.Raw)),
		Auth:        foundry.OpenAPIConnectionAuth(cfg.ConnectionID),
	})
	if err != nil {
		return err
	}
	if err := tool.ValidationError(); err != nil {
		a.Log.WithError(err).WithField("tool", translatorToolName).Warn("openapi spec did not validate; sending it as written")
	}
	a.Log.WithFields(logrus.Fields{"tool": translatorToolName, "operations": tool.Operations()}).Debug("loaded openapi tool")

	params, err := a.clientParams()
	if err != nil {
		return err
	}
	params.Endpoint = cfg.ProjectEndpoint
	client, err := foundry.NewClientWithParams(params)
	if err != nil {
		return err
	}
	defer client.Close()

	agent, err := client.Agents.CreateWithContext(ctx, foundry.CreateAgentParams{
		Model:        cfg.ModelName,
		Name:         translatorAgentName,
		Instructions: translatorInstructions,
		Tools:        tool.Definitions(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Created agent, ID: %s\n", agent.ID)

	if !a.v.GetBool("keep-agent") {
		defer func() {
			if _, err := client.Agents.DeleteWithContext(context.WithoutCancel(ctx), agent.ID); err != nil {
				a.Log.WithError(err).WithField("agent_id", agent.ID).Warn("delete agent failed")
				return
			}
			fmt.Fprintln(a.Out, "Deleted agent")
		}()
	}

	thread, err := client.Threads.CreateWithContext(ctx, foundry.CreateThreadParams{})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Created thread, ID: %s\n", thread.ID)

	message, err := client.Messages.CreateWithContext(ctx, thread.ID, foundry.CreateMessageParams{
		Role:    foundry.RoleUser,
		Content: a.v.GetString("message"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Created message: %s\n", message.ID)

	run, err := client.Runs.CreateAndProcessWithContext(ctx, thread.ID, agent.ID, foundry.ProcessOptions{
		Timeout: runTimeout,
		OnStatus: func(r foundry.Run) {
			a.Log.WithFields(logrus.Fields{"run_id": r.ID, "status": r.Status}).Debug("run status")
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Run finished with status: %s\n", run.Status)
	if run.Status == foundry.RunFailed {
		fmt.Fprintf(a.Out, "Run failed: %s\n", run.LastError)
	}

	messages, err := client.Messages.ListAllWithContext(ctx, thread.ID, foundry.ListMessagesParams{
		ListParams: foundry.ListParams{Order: foundry.SortAscending},
	})
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if text, ok := msg.LastText(); ok {
			fmt.Fprintf(a.Out, "%s: %s\n", msg.Role, text)
		}
	}
	return nil
}
