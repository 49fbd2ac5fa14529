package main

import (
	"time"

	"github.com/abzagency/signup-api/pkg/abzapi"
	"github.com/abzagency/signup-api/pkg/httpclient"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultBaseURL = "https://frontend-test-assignment-api.abz.agency"

type rootOptions struct {
	baseURL  string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "signup",
		Short:         "Register users against the users API from the command line",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Initialize(logger.Config{
				Level:       opts.logLevel,
				Environment: "development",
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.baseURL, "api-base-url", defaultBaseURL, "Users API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-request timeout (0 disables)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newPositionsCmd(opts))
	return cmd
}

func (o *rootOptions) client() *abzapi.Client {
	return abzapi.NewClient(o.baseURL, httpclient.NewStandardClient(o.timeout))
}
