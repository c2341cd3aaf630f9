package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/config"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), a.configPath, a.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), a.cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := config.InitFile(a.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintln(out, completedStyle.Render("Created "+a.configPath))
			} else {
				fmt.Fprintln(out, warnStyle.Render(a.configPath+" already exists"))
			}
			return nil
		},
	})

	return configCmd
}

func configured(ok bool) string {
	if ok {
		return completedStyle.Render("configured")
	}
	return warnStyle.Render("not configured")
}

func showConfig(w io.Writer, path string, cfg *config.Config) {
	printTitle(w, "QuantLens configuration")
	printField(w, "Config file", path)
	printField(w, "Results dir", cfg.ResultsDir)
	printField(w, "Cache dir", cfg.DataCacheDir)
	printField(w, "Database", cfg.DBPath)

	printSection(w, "Model")
	printField(w, "Provider", cfg.LLMProvider)
	printField(w, "Model", cfg.ResolvedModel())
	printField(w, "Backend URL", cfg.ResolvedBackendURL())
	printField(w, "Max tokens", fmt.Sprintf("%d", cfg.MaxTokens))
	printField(w, "Eino debug", fmt.Sprintf("%t", cfg.EinoDebugEnabled))

	printSection(w, "Analysis")
	printField(w, "Lookback", fmt.Sprintf("%d days", cfg.LookbackDays))
	printField(w, "Chart window", fmt.Sprintf("%d days", cfg.ChartDays))
	periods := make([]string, len(cfg.EMAPeriods))
	for i, p := range cfg.EMAPeriods {
		periods[i] = fmt.Sprintf("%d", p)
	}
	printField(w, "EMA periods", strings.Join(periods, ", "))
	printField(w, "Cache", fmt.Sprintf("%t (ttl %s)", cfg.CacheEnabled, cfg.CacheTTL))

	printSection(w, "Credentials")
	_, keyErr := cfg.APIKey()
	printField(w, "LLM API key", configured(keyErr == nil))
	printField(w, "Longport", configured(cfg.HasLongport()))
	printField(w, "Chart ID", configured(cfg.TradingViewChartID != ""))
}

func validateConfig(w io.Writer, cfg *config.Config) error {
	printTitle(w, "Validating QuantLens configuration")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, errorStyle.Render("settings: "+err.Error()))
		return err
	}
	fmt.Fprintln(w, completedStyle.Render("settings: ok"))

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(w, errorStyle.Render("directories: "+err.Error()))
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(w, completedStyle.Render("directories: ok"))

	var warnings []string
	if _, err := cfg.APIKey(); err != nil {
		warnings = append(warnings, err.Error()+"; analyze needs --no-llm")
	}
	if !cfg.HasLongport() {
		warnings = append(warnings, "Longport credentials not configured; .HK/.SH/.SZ symbols use Yahoo")
	}
	if cfg.TradingViewChartID == "" {
		warnings = append(warnings, "TRADINGVIEW_CHART_ID not set; --chart is unavailable")
	}
	for _, warning := range warnings {
		fmt.Fprintln(w, warnStyle.Render("warning: "+warning))
	}
	return nil
}
