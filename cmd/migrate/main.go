package main

import (
	"context" // Request scoped context
	"fmt"     // Output formatting
	"os"      // Exit codes

	"lottery_system/internal/auth"      // Password hashing
	"lottery_system/internal/config"    // Custom import path (Config)
	"lottery_system/internal/db"        // Custom import path (Database)
	"lottery_system/internal/domain"    // Domain models
	"lottery_system/internal/drawcrypt" // Draw key generation
	"lottery_system/internal/forms"     // Field validation
	"lottery_system/internal/store"     // Persistence

	"github.com/gin-gonic/gin/binding" // Shared validator
	"github.com/pquerna/otp/totp"      // TOTP seed generation
	"github.com/sirupsen/logrus"       // Logging
	"github.com/spf13/cobra"           // Command line interface
)

// rootCmd migrates the schema when run without a subcommand
var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the lottery database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(config.LoadConfig().DSN())
		if err != nil {
			return err
		}
		if err := db.Migrate(gdb); err != nil {
			return err
		}
		logrus.Info("Migration completed.") // Log successful migration
		return nil
	},
}

var admin adminInput // Flags of create-admin

// createAdminCmd seeds an administrator account
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(config.LoadConfig().DSN())
		if err != nil {
			return err
		}
		user, err := createAdmin(cmd.Context(), store.NewUsers(gdb), admin)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"id": user.ID, "email": user.Email}).Info("Administrator created")
		fmt.Fprintf(cmd.OutOrStdout(), "PIN key: %s\n", user.PinKey) // Needed to set up the authenticator app
		return nil
	},
}

// genKeyCmd prints a fresh DRAW_KEY value
var genKeyCmd = &cobra.Command{
	Use:   "gen-key",
	Short: "Print a new random draw encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := drawcrypt.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

// adminInput carries the details of a new administrator
type adminInput struct {
	Email     string // Login email
	FirstName string // First name
	LastName  string // Last name
	Phone     string // Phone number
	Password  string // Plain password
	PinKey    string // TOTP seed, generated when empty
}

// createAdmin validates in with the registration rules and stores an admin account
func createAdmin(ctx context.Context, users store.UserStore, in adminInput) (*domain.User, error) {
	if in.PinKey == "" {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "Lottery", AccountName: in.Email})
		if err != nil {
			return nil, fmt.Errorf("generate pin key: %w", err)
		}
		in.PinKey = key.Secret() // 20 random bytes encode to 32 base32 characters
	}
	if err := forms.Register(); err != nil {
		return nil, err
	}
	form := forms.RegisterForm{
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Phone:           in.Phone,
		Password:        in.Password,
		ConfirmPassword: in.Password,
		PinKey:          in.PinKey,
	}
	// Same rules as the sign-up page
	if err := binding.Validator.ValidateStruct(&form); err != nil {
		return nil, fmt.Errorf("invalid administrator: %v", forms.Messages(err))
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Password:  hash,
		PinKey:    in.PinKey,
		Role:      domain.RoleAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&admin.Email, "email", "", "login email")
	f.StringVar(&admin.FirstName, "first-name", "", "first name")
	f.StringVar(&admin.LastName, "last-name", "", "last name")
	f.StringVar(&admin.Phone, "phone", "", "phone number, NNNN-NNN-NNNN")
	f.StringVar(&admin.Password, "password", "", "password")
	f.StringVar(&admin.PinKey, "pin-key", "", "32 character base32 TOTP seed, generated when empty")
	for _, name := range []string{"email", "first-name", "last-name", "phone", "password"} {
		_ = createAdminCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(createAdminCmd, genKeyCmd)
}

// Main entry point for migration
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
