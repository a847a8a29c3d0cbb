package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"backoffice.GO/core/apperr"
	entity "backoffice.GO/model/entity"
	auditEntity "backoffice.GO/model/entity/audit"
	authRepo "backoffice.GO/model/repository/auth"
	"backoffice.GO/service/audit"
)

var (
	userName     string
	userEmail    string
	userFullName string
	userRole     string
	rolePerms    []string
	tokenTTL     time.Duration
	tokenValue   string
)

var usersCreateCmd = &cobra.Command{
	Use:   "users:create",
	Short: "Create a back-office user, creating its role when missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		userName = strings.TrimSpace(userName)
		if userName == "" {
			return apperr.Validation("--username is required")
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		repo := authRepo.NewAuthRepository(a.db)
		u := &entity.User{Username: userName, Email: userEmail, FullName: userFullName, IsActive: true}
		if userRole != "" {
			role, err := repo.EnsureRole(userRole, "", rolePerms)
			if err != nil {
				return fmt.Errorf("role %s: %w", userRole, err)
			}
			u.RoleID = &role.ID
		}
		if err := repo.CreateUser(u); err != nil {
			return fmt.Errorf("create user %s: %w", userName, err)
		}
		a.audit.Record(cmd.Context(), audit.System(), audit.Entry{
			Action:      auditEntity.ActionCreate,
			Model:       "user",
			ObjectID:    audit.ObjectID(u.ID),
			Description: "user " + u.Username + " created",
			Data:        map[string]interface{}{"role": userRole},
		})
		fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %d)\n", u.Username, u.ID)
		return nil
	},
}

var tokensCreateCmd = &cobra.Command{
	Use:   "tokens:create",
	Short: "Issue a bearer token for AUTH_TYPE=token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		repo := authRepo.NewAuthRepository(a.db)
		u, err := repo.FindUserByUsername(userName)
		if err != nil {
			return apperr.NotFound("active user %q not found", userName)
		}
		t, err := repo.CreateToken(u.ID, tokenTTL)
		if err != nil {
			return err
		}
		a.audit.Record(cmd.Context(), audit.System(), audit.Entry{
			Action:      auditEntity.ActionLogin,
			Model:       "api_token",
			ObjectID:    audit.ObjectID(t.ID),
			Description: "token issued for " + u.Username,
		})
		fmt.Fprintln(cmd.OutOrStdout(), t.Token)
		return nil
	},
}

var tokensRevokeCmd = &cobra.Command{
	Use:   "tokens:revoke",
	Short: "Revoke a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenValue == "" {
			return apperr.Validation("--token is required")
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		if err := authRepo.NewAuthRepository(a.db).RevokeToken(tokenValue); err != nil {
			return err
		}
		a.audit.Record(cmd.Context(), audit.System(), audit.Entry{
			Action:      auditEntity.ActionLogout,
			Model:       "api_token",
			Description: "token revoked",
			Data:        map[string]interface{}{"token": tokenValue},
		})
		fmt.Fprintln(cmd.OutOrStdout(), "Token revoked.")
		return nil
	},
}

func init() {
	usersCreateCmd.Flags().StringVarP(&userName, "username", "u", "", "Username (required)")
	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email")
	usersCreateCmd.Flags().StringVar(&userFullName, "full-name", "", "Full name")
	usersCreateCmd.Flags().StringVar(&userRole, "role", "", "Role name")
	usersCreateCmd.Flags().StringSliceVar(&rolePerms, "perm", nil, "Permissions for a new role (e.g. inventory.write, *)")
	tokensCreateCmd.Flags().StringVarP(&userName, "username", "u", "", "Username (required)")
	tokensCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime; 0 never expires")
	tokensRevokeCmd.Flags().StringVar(&tokenValue, "token", "", "Token to revoke")
	rootCmd.AddCommand(usersCreateCmd, tokensCreateCmd, tokensRevokeCmd)
}
