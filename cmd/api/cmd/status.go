package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"civic-vote/api"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the vote ledger of a running server",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "base url of the civic server")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := fetchChainStatus(statusAddr)
	if err != nil {
		return err
	}
	return printChainStatus(statusAddr, *status)
}

func fetchChainStatus(addr string) (*api.ChainStatus, error) {
	agent := fiber.Get(strings.TrimSuffix(addr, "/") + "/api/blockchain/stats")
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to reach %s: %w", addr, errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", code, addr)
	}

	var status api.ChainStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode ledger stats: %w", err)
	}
	return &status, nil
}
