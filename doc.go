// Package foundry is a Go client for Azure AI Foundry agents and the
// management API behind a project.
//
// # Installation
//
//	go get github.com/foundry-samples/foundry-go
//
// # Quick Start
//
// Create an agent with an OpenAPI tool and run one message through it:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//		"os"
//
//		foundry "github.com/foundry-samples/foundry-go"
//	)
//
//	func main() {
//		// nil credential: FOUNDRY_API_KEY or DefaultAzureCredential
//		client, err := foundry.NewClient(os.Getenv("FOUNDRY_PROJECT_ENDPOINT"), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer client.Close()
//
//		spec, _ := os.ReadFile("translator.json")
//		tool, err := foundry.NewOpenAPITool(foundry.OpenAPIToolParams{
//			Name: "translator_api",
//			Spec: spec,
//			Auth: foundry.OpenAPIConnectionAuth(os.Getenv("TRANSLATOR_CONNECTION_ID")),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		agent, err := client.Agents.Create(foundry.CreateAgentParams{
//			Model: "gpt-4o",
//			Name:  "ms-translator",
//			Tools: tool.Definitions(),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer client.Agents.Delete(agent.ID)
//
//		thread, _ := client.Threads.Create(foundry.CreateThreadParams{})
//		client.Messages.Create(thread.ID, foundry.CreateMessageParams{Content: "Translate: bonjour"})
//
//		run, err := client.Runs.CreateAndProcess(thread.ID, agent.ID, foundry.ProcessOptions{})
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("run:", run.Status)
//	}
//
// # Core Features
//
//   - Agents, threads, messages, runs and files of the agents data plane
//   - Run polling with tool-output submission and timeouts
//   - OpenAPI tools from JSON documents, with optional strict validation
//   - Account connections and projects through Azure Resource Manager
//   - Entra ID tokens via azcore credentials, or API keys
//   - Automatic retry logic with exponential backoff and Retry-After
//   - Request/response hooks and header redaction for debugging
//
// # Environment Variables
//
//   - FOUNDRY_PROJECT_ENDPOINT: project endpoint of the agents data plane
//   - FOUNDRY_API_KEY: optional key sent instead of a bearer token
//   - FOUNDRY_API_VERSION: agents api-version (defaults to 2025-05-15-preview)
//   - FOUNDRY_TIMEOUT: request timeout in seconds (defaults to 60)
//   - FOUNDRY_MAX_RETRIES: max retries (defaults to 3)
//   - FOUNDRY_POLL_INTERVAL: run polling interval in seconds (defaults to 1)
//   - FOUNDRY_MANAGEMENT_ENDPOINT, FOUNDRY_MANAGEMENT_API_VERSION: ARM overrides
package foundry
