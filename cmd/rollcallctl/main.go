package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/rollcall/internal/auth"
	"github.com/mmynk/rollcall/internal/config"
	"github.com/mmynk/rollcall/internal/middleware"
	"github.com/mmynk/rollcall/internal/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "rollcallctl",
		Short:   "Operator tool for the rollcall server",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Server base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("ROLLCALL_TOKEN"), "Bearer token (default $ROLLCALL_TOKEN)")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(ticketStatusCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [person-id]",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			admin, _ := cmd.Flags().GetBool("admin")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl == 0 {
				ttl = cfg.TokenTTL
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, ttl).Generate(args[0], admin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Bool("admin", false, "Grant the admin flag (ticket system integration)")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (default $TOKEN_TTL)")

	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [activity-id]",
		Short: "Print an activity with its participants and collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			resp, err := client.GetActivity(cmd.Context(), connect.NewRequest(&service.ActivityRequest{ActivityID: args[0]}))
			if err != nil {
				return err
			}
			return printJSON(cmd, resp.Msg)
		},
	}
}

func ticketStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticket-status [ticket-ref] [open|in_progress|closed]",
		Short: "Report a ticket status change (requires an admin token)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			resp, err := client.RecordTicketStatus(cmd.Context(), connect.NewRequest(&service.RecordTicketStatusRequest{
				TicketRef: args[0],
				Status:    args[1],
			}))
			if err != nil {
				return err
			}
			return printJSON(cmd, resp.Msg)
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [activity-id]",
		Short: "Stream changes to an activity until it settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			stream, err := client.WatchActivity(ctx, connect.NewRequest(&service.ActivityRequest{ActivityID: args[0]}))
			if err != nil {
				return err
			}
			defer stream.Close()

			for stream.Receive() {
				e := stream.Msg()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					time.Unix(e.At, 0).Format(time.RFC3339), e.Kind, e.PersonID, e.Status)
			}
			if err := stream.Err(); err != nil && connect.CodeOf(err) != connect.CodeDeadlineExceeded {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Duration("timeout", 0, "Stop watching after this long")

	return cmd
}

func newClient(cmd *cobra.Command) (*service.ActivityServiceClient, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		return nil, errors.New("a bearer token is required (--token or $ROLLCALL_TOKEN)")
	}
	return service.NewActivityServiceClient(http.DefaultClient, server,
		connect.WithInterceptors(middleware.BearerToken(token))), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
