package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/config"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required variables that are missing
	Present  map[string]string // Variables that are set (masked values)
	Warnings []string          // Non-fatal warnings
}

// CheckRequiredConfig validates that the workflow environment variables are set
func CheckRequiredConfig() *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	requiredVars := []string{
		config.EnvDiscordToken,
		config.EnvDiscordChannel,
		config.EnvGitHubToken,
		config.EnvRepository,
	}

	for _, v := range requiredVars {
		val := os.Getenv(v)
		if val == "" {
			result.Missing = append(result.Missing, v)
		} else {
			result.Present[v] = maskSecret(val)
		}
	}

	if val := os.Getenv(config.EnvUserMapping); val != "" {
		result.Present[config.EnvUserMapping] = fmt.Sprintf("(%d bytes)", len(val))
	} else {
		result.Warnings = append(result.Warnings, config.EnvUserMapping+" is not set; reviewers will be shown as GitHub logins")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(w io.Writer, result *ConfigCheckResult) {
	fmt.Fprintln(w, "=== Configuration Check ===")
	fmt.Fprintln(w, "")

	if len(result.Missing) > 0 {
		fmt.Fprintln(w, "❌ Missing required variables:")
		for _, v := range result.Missing {
			fmt.Fprintf(w, "   - %s\n", v)
		}
		fmt.Fprintln(w, "")
	}

	if len(result.Present) > 0 {
		fmt.Fprintln(w, "✓ Configured variables:")
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
		}
		fmt.Fprintln(w, "")
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠ Warning: %s\n", warning)
	}

	if len(result.Missing) == 0 {
		fmt.Fprintln(w, "✓ All required configuration is present")
	}

	fmt.Fprintln(w, "============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
