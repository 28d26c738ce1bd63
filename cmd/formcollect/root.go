package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tbxark/formcollect/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "formcollect",
	Short: "Conversational form collection tools",
	Long: `formcollect serves form definitions as agent tools that collect
field values step by step, validate them and store the submissions.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./formcollect.yaml)")
	rootCmd.PersistentFlags().String("forms", "", "directory holding form definitions")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("forms.dir", rootCmd.PersistentFlags().Lookup("forms"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, formsCmd, fieldsCmd, schemaCmd)
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("formcollect")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/formcollect")
	}

	viper.SetEnvPrefix("FORMCOLLECT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// setupLogging logs JSON to stderr, stdout carries the stdio transport.
func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := parseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	if f := viper.ConfigFileUsed(); f != "" {
		slog.Debug("config loaded", "file", f)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
