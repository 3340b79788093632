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
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askLogFile string

// askCmd answers a single question about a telemetry recording.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question about a flight log",
	Long: `Ask uploads the given flight log, answers one question against it and
exits. Use chat for a multi-turn conversation over the same log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		raw, err := os.ReadFile(askLogFile)
		if err != nil {
			return fmt.Errorf("reading log file: %w", err)
		}

		orch, logger, err := buildOrchestrator(config)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		sessionID := uuid.New().String()
		ctx := cmd.Context()

		if err := orch.Upload(ctx, sessionID, raw); err != nil {
			return fmt.Errorf("uploading log: %w", err)
		}
		defer orch.Evict(sessionID)

		answer, err := orch.Ask(ctx, sessionID, question)
		if err != nil {
			return err
		}

		fmt.Println(answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askLogFile, "log", "", "flight log file (JSONL)")
	_ = askCmd.MarkFlagRequired("log")
	rootCmd.AddCommand(askCmd)
}
