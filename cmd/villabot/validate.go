package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/keepmind9/villabot/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfig string
	validateShow   bool
	validateJSON   bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Bots     int      `json:"bots"`
	Replies  int      `json:"replies"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate villabot configuration file",
	Long: `Validate the villabot configuration file without starting the server.

This command checks:
  - YAML syntax and environment variables
  - Bot credentials and public keys
  - Callback paths
  - Reply rules

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, err := findConfig(validateConfig)
		if err != nil {
			return err
		}
		cfg, loadErr := core.LoadConfig(configFile)
		result := validate(configFile, cfg, loadErr)
		if validateShow && result.Valid && !validateJSON {
			showConfig(cmd.OutOrStdout(), cfg)
		}
		return printValidation(cmd.OutOrStdout(), result, validateJSON)
	},
}

// validate summarizes a loaded configuration, or the error that stopped it from loading
func validate(configFile string, cfg *core.Config, loadErr error) ValidationResult {
	if loadErr != nil {
		return ValidationResult{Config: configFile, Errors: []string{loadErr.Error()}}
	}
	return ValidationResult{
		Valid:    true,
		Config:   configFile,
		Bots:     len(cfg.Bots),
		Replies:  len(cfg.Replies),
		Warnings: validateConfigDetails(cfg),
	}
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string
	for _, bot := range cfg.Bots {
		if !bot.ShouldVerify() {
			warnings = append(warnings, fmt.Sprintf("bot '%s' accepts unsigned callbacks (verify_event: false)", bot.BotID))
		}
		if len(cfg.RepliesFor(bot.BotID)) == 0 {
			warnings = append(warnings, fmt.Sprintf("bot '%s' has no reply rules", bot.BotID))
		}
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Insecure {
		warnings = append(warnings, "tracing exports spans without TLS")
	}
	return warnings
}

// printValidation writes result and returns an error when the configuration is invalid
func printValidation(w io.Writer, result ValidationResult, asJSON bool) error {
	if asJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		fmt.Fprintln(w, string(output))
	} else if result.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
		fmt.Fprintf(w, "  Config file: %s\n", result.Config)
		fmt.Fprintf(w, "  Bots configured: %d\n", result.Bots)
		fmt.Fprintf(w, "  Reply rules: %d\n", result.Replies)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, "\n⚠️  Warnings:")
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "  - %s\n", warning)
			}
		}
	} else {
		fmt.Fprintln(w, "❌ Configuration validation failed:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", errMsg)
		}
	}

	if !result.Valid {
		return fmt.Errorf("configuration %s is invalid", result.Config)
	}
	return nil
}

func showConfig(w io.Writer, cfg *core.Config) {
	fmt.Fprintf(w, "Server: %s\n\n", cfg.Server.Addr())
	fmt.Fprintf(w, "Bots (%d):\n", len(cfg.Bots))
	for _, bot := range cfg.Bots {
		endpoint, _ := bot.Endpoint()
		fmt.Fprintf(w, "  - %s: secret %s, endpoint %s, verify %v, wait %v\n",
			bot.BotID, core.MaskSecret(bot.BotSecret), endpoint, bot.ShouldVerify(), bot.WaitUntilComplete)
	}
	fmt.Fprintf(w, "\nReplies (%d):\n", len(cfg.Replies))
	for _, r := range cfg.Replies {
		target := r.BotID
		if target == "" {
			target = "*"
		}
		fmt.Fprintf(w, "  - [%s] priority %d: %q\n", target, r.Priority, r.Text)
	}
	fmt.Fprintln(w)
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfig, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Show full configuration details")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
