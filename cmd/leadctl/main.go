package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"estateleads/client"
)

var (
	apiFlag      string
	tokenFlag    string
	userIDFlag   uint
	userTypeFlag string
	timeoutFlag  time.Duration
	debugFlag    bool
	rootCmd      = &cobra.Command{
		Use:           "leadctl",
		Short:         "CLI client for the lead management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", envOr("LEADCTL_API", "http://localhost:8080/api/v1"), "API base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", os.Getenv("LEADCTL_TOKEN"), "Bearer token, see the token command")
	rootCmd.PersistentFlags().UintVarP(&userIDFlag, "user-id", "u", 0, "Lister id the token belongs to, sent with edits when set")
	rootCmd.PersistentFlags().StringVar(&userTypeFlag, "user-type", "agent", "Lister type: developer, agent or agency")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 15*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log HTTP requests")

	rootCmd.AddCommand(leadsCmd(), remindersCmd(), tokenCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() (*client.Client, error) {
	if tokenFlag == "" {
		return nil, fmt.Errorf("--token or LEADCTL_TOKEN required")
	}
	return client.New(apiFlag, client.StaticUser{ID: userIDFlag, Type: userTypeFlag, Token: tokenFlag},
		client.WithTimeout(timeoutFlag),
		client.WithDebug(debugFlag),
		client.WithUserAgent("leadctl"),
	)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeoutFlag)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
