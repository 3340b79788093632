// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel - conversational flight-telemetry analysis",
	Long: `Kestrel answers natural-language questions about flight telemetry
recordings. Upload a log, then ask about positions, battery health, errors,
flight modes or anything else the recording contains.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, config)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./kestrel.yaml)")

	rootCmd.PersistentFlags().String("llm-provider", "", "LLM provider (anthropic, bedrock)")
	rootCmd.PersistentFlags().String("anthropic-key", "", "Anthropic API key (or use ANTHROPIC_API_KEY)")
	rootCmd.PersistentFlags().String("anthropic-model", "", "Anthropic model")
	rootCmd.PersistentFlags().String("selector", "", "type selection strategy (keyword, oracle)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// applyFlagOverrides applies explicitly-set flags on top of the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	if v, err := flags.GetString("llm-provider"); err == nil && v != "" {
		cfg.LLM.Provider = v
	}
	if v, err := flags.GetString("anthropic-key"); err == nil && v != "" {
		cfg.LLM.AnthropicAPIKey = v
	}
	if v, err := flags.GetString("anthropic-model"); err == nil && v != "" {
		cfg.LLM.AnthropicModel = v
	}
	if v, err := flags.GetString("selector"); err == nil && v != "" {
		cfg.Selector.Strategy = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.Logging.Level = v
	}
}
