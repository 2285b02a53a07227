package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"growthops/internal/runner"
)

var (
	execTenant   string
	execStrategy string
	execUser     string
	execOptions  string
)

// executeCmd runs one strategy outside the HTTP server, e.g. from a
// scheduler. It prints the same JSON body the API would return.
var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute one strategy and print the result",
	RunE:  runExecute,
}

func init() {
	f := executeCmd.Flags()
	f.StringVar(&execTenant, "tenant", "", "tenant id (required)")
	f.StringVar(&execStrategy, "strategy", "", "strategy id (required)")
	f.StringVar(&execUser, "user", "", "user id recorded as executed_by")
	f.StringVar(&execOptions, "options", "", "JSON object passed to every plugin")
}

func runExecute(cmd *cobra.Command, _ []string) error {
	body := map[string]any{
		"tenant_id":   execTenant,
		"strategy_id": execStrategy,
	}
	if strings.TrimSpace(execUser) != "" {
		body["user_id"] = execUser
	}
	if strings.TrimSpace(execOptions) != "" {
		var opts any
		if err := json.Unmarshal([]byte(execOptions), &opts); err != nil {
			return fmt.Errorf("--options: %w", err)
		}
		body["options"] = opts
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := runner.ParseRequest(raw)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.runner.Execute(cmd.Context(), req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
