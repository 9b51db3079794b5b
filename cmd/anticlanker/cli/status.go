package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the server is running",
		Long:  "Probe the server's public status endpoint and report what it answers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	port := viper.GetInt("server.port")
	if port == 0 {
		port = 8080
	}
	host := viper.GetString("server.host")
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	statusAddr := fmt.Sprintf("http://%s:%d/status", host, port)
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(statusAddr)
	if err != nil {
		fmt.Printf("Server is not responding at %s\n", statusAddr)
		return nil
	}
	defer resp.Body.Close()

	var payload struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Printf("Server answered %d at %s but the body did not parse\n", resp.StatusCode, statusAddr)
		return nil
	}

	fmt.Printf("Server is running\n")
	fmt.Printf("  Endpoint: %s (%d)\n", statusAddr, resp.StatusCode)
	fmt.Printf("  Service:  %s %s\n", payload.Service, payload.Version)
	return nil
}
