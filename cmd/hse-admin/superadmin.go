package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/repository"
	"github.com/noah-isme/hse-api/internal/service"
)

type superAdminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

func createSuperAdminCmd() *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Bootstrap a super admin account",
		Long: `Create a SUPERADMIN user that belongs to no company.

Examples:
  hse-admin create-superadmin --email ops@example.com --name "Ops Team" --password 's3cret-pass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := createSuperAdmin(cmd.Context(), repository.NewUserRepository(e.db), email, name, password)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "created super admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func createSuperAdmin(ctx context.Context, store superAdminStore, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, errors.New("email and name are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	existing, err := store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("a user with email %s already exists", email)
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		FullName:     name,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Active:       true,
	}
	if err := store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
