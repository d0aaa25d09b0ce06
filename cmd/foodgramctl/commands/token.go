package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

var tokenTTL time.Duration

// tokenCmd issues a bearer token for an existing user.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id | username>",
	Short: "Issue an access token for a user",
	Long: `Issue a signed access token for an existing user.

Examples:
  foodgramctl token 1
  foodgramctl token admin --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		users := service.NewUserService(db)
		ctx := cmd.Context()
		var user *models.User
		if id, convErr := strconv.ParseUint(args[0], 10, 32); convErr == nil {
			user, err = users.GetUserByID(ctx, uint(id))
		} else {
			user, err = users.GetUserByUsername(ctx, args[0])
		}
		if err != nil {
			return err
		}

		ttl := cfg.JWTTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := service.NewAuthService(cfg.JWTSecret, ttl).GenerateToken(user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to the configured JWT TTL)")
	rootCmd.AddCommand(tokenCmd)
}
