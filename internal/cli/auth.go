// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caurisai/cauris-tui/internal/api"
	"github.com/caurisai/cauris-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN
// =============================================================================

func (a *app) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			var err error
			if email == "" {
				if email, err = p.Line("E-mail: "); err != nil {
					return err
				}
			}
			password, err := p.Password("Mot de passe: ")
			if err != nil {
				return err
			}
			if email == "" || password == "" {
				return fmt.Errorf("%w: e-mail and password are required", api.ErrInvalidInput)
			}

			client, err := a.client("")
			if err != nil {
				return err
			}
			tok, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.store.SetAuth(tok.AccessToken, email); err != nil {
				return err
			}
			a.logger.Info("logged in", zap.String("email", email))
			printf(cmd.OutOrStdout(), "%s\n", styles.RenderSuccess("Connecté en tant que "+email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account e-mail")
	return cmd
}

// =============================================================================
// SIGNUP
// =============================================================================

func (a *app) signupCmd() *cobra.Command {
	var req api.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			var err error
			if req.FullName == "" {
				if req.FullName, err = p.Line("Nom complet: "); err != nil {
					return err
				}
			}
			if req.Email == "" {
				if req.Email, err = p.Line("E-mail: "); err != nil {
					return err
				}
			}
			if req.Password, err = p.Password("Mot de passe: "); err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}

			client, err := a.client("")
			if err != nil {
				return err
			}
			msg, err := client.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.logger.Info("account created", zap.String("email", req.Email))
			if strings.TrimSpace(msg) == "" {
				msg = "Compte créé."
			}
			printf(cmd.OutOrStdout(), "%s\n", styles.RenderSuccess(msg))
			printf(cmd.OutOrStdout(), "Lancez `cauris login -e %s` pour vous connecter.\n", req.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account e-mail")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Role, "role", api.DefaultRole, "account role")
	return cmd
}

// =============================================================================
// LOGOUT
// =============================================================================

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.ClearAuth(); err != nil {
				return err
			}
			a.logger.Info("logged out")
			printf(cmd.OutOrStdout(), "%s\n", styles.RenderInfo("Déconnecté."))
			return nil
		},
	}
}
