package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/identity"
	"github.com/PaulFidika/authmodule/password"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, raw, role string
	var disabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with a salted password digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if cfg.DatabaseURL == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
			}
			u, err := newUserEntity(cfg.DigestAlgorithm, username, raw, role, disabled)
			if err != nil {
				return oops.Code("INVALID_USER").Wrap(err)
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").Wrap(err)
			}
			defer pool.Close()

			id, err := identity.NewStore(pool, "auth").Create(cmd.Context(), u)
			if err != nil {
				return oops.Code("USER_CREATE_FAILED").With("username", username).Wrap(err)
			}
			cmd.Printf("Created user %s (id %d)\n", username, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&raw, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", "", "role")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the account disabled")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// newUserEntity salts and encodes raw the way credential.Provider checks it:
// encode(raw ++ salt).
func newUserEntity(algorithm, username, raw, role string, disabled bool) (core.UserEntity, error) {
	if username == "" || raw == "" {
		return core.UserEntity{}, fmt.Errorf("username and password required")
	}
	enc, err := password.NewEncoder(algorithm)
	if err != nil {
		return core.UserEntity{}, err
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return core.UserEntity{}, err
	}
	salt := hex.EncodeToString(b)
	digest, err := enc.Encode(raw + salt)
	if err != nil {
		return core.UserEntity{}, err
	}
	return core.UserEntity{Username: username, Password: digest, Salt: salt, Role: role, IsDisabled: disabled}, nil
}
