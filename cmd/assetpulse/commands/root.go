package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// ASSETPULSE_ORCHESTRATOR_BATCH_SIZE.
const EnvPrefix = "ASSETPULSE"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "assetpulse",
	Short: "Telemetry anomaly detection for physical assets",
	Long: `AssetPulse - Telemetry Anomaly Detection

Profile. Detect. Unify. Score.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, danger.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.assetpulse.yaml)")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(AnalyzeCmd)
	rootCmd.AddCommand(SourcesCmd)
	rootCmd.AddCommand(DomainsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".assetpulse.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	configureEnv(viper.GetViper())
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to read config %s: %v\n", cfgFile, err)
	}
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// loadAnalysisConfig layers file, environment and bound flags over the
// defaults.
func loadAnalysisConfig(v *viper.Viper) (config.Config, error) {
	cfg := config.Default()

	// AutomaticEnv only answers for keys viper already knows about.
	for _, key := range []string{
		"orchestrator.batch_size", "orchestrator.source_timeout", "orchestrator.global_timeout",
		"orchestrator.min_batch_budget", "orchestrator.batch_cooldown",
		"orchestrator.enrichment_top_k", "orchestrator.enrichment_timeout",
		"detection.min_samples", "unify.top_k",
	} {
		if err := v.BindEnv(key); err != nil {
			return cfg, err
		}
	}

	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Orchestrator.BatchSize < 0 || cfg.Unify.TopK < 0 {
		return cfg, errors.New("invalid configuration: batch size and top-k must not be negative")
	}
	return cfg, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99")).
			MarginBottom(1)
	flagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func renderHelp(cmd *cobra.Command) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s %s", strings.ToUpper(version.AppName), version.Current)))
	fmt.Println("Telemetry anomaly detection and health scoring for physical assets.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println("")
	}

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  assetpulse analyze press.csv --system-type hydraulic_press")
	fmt.Println("  assetpulse analyze press.csv --format json --output s3://bucket/press.json")
	fmt.Println("  assetpulse analyze press.csv --tui")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-16s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}
