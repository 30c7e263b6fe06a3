package cli

import (
	"fmt"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/pkg/util"
	"github.com/spf13/cobra"
)

type tokenResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewTokenCommand mints an access token signed with JWT_SECRET, for
// operators who need to call the admin API without the storefront.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var userID uint
	var email, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user-id is required")
			}
			switch model.UserRole(role) {
			case model.RoleAdmin, model.RoleUser:
			default:
				return fmt.Errorf("invalid role %q", role)
			}

			env, closeEnv, err := rootOpts.load(false)
			if err != nil {
				return err
			}
			defer closeEnv()

			pair, err := util.GenerateTokenPair(userID, email, role, env.Config.JWT.Secret, ttl, ttl)
			if err != nil {
				return err
			}
			return emit(cmd, rootOpts, pair.AccessToken, tokenResult{
				AccessToken: pair.AccessToken,
				ExpiresAt:   time.Now().UTC().Add(ttl),
			})
		},
	}

	cmd.Flags().UintVar(&userID, "user-id", 0, "subject user id")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "role claim (admin|user)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
