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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatLogFile string

// chatCmd runs an interactive conversation over one flight log.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively about a flight log",
	Long: `Chat uploads the given flight log and starts an interactive loop.
Each line you type is answered against the recording; conversation history
carries across turns. Type "exit" or press Ctrl-D to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(chatLogFile)
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

		fmt.Printf("Loaded %s. Ask about the flight, or type \"exit\" to quit.\n\n", chatLogFile)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			answer, err := orch.Ask(ctx, sessionID, line)
			if err != nil {
				// The failure turn is already recorded; keep the loop going.
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Printf("\n%s\n\n", answer)
		}

		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatLogFile, "log", "", "flight log file (JSONL)")
	_ = chatCmd.MarkFlagRequired("log")
	rootCmd.AddCommand(chatCmd)
}
