package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/model"
)

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Allocate one mailbox, print it and exit",
		RunE:  runNew,
	}
}

func runNew(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	s, err := e.manager.Generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate address: %w", err)
	}
	e.manager.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, s.Address)
	fmt.Fprintf(out, "provider: %s\n", s.Provider)
	fmt.Fprintf(out, "expires:  %s\n", s.ExpiresAt.Local().Format(time.DateTime))
	if s.Provider == model.ProviderMailGW {
		if pw, err := e.creds.Get(credential.MailGWPasswordKey(s.Address)); err == nil {
			fmt.Fprintf(out, "password: %s\n", pw)
		}
	}
	return nil
}
