package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runForgotPassword(ctx context.Context, args []string) error {
	c.io.Println("=== Password Recovery ===")
	c.io.Println()

	var email string
	var err error
	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = c.io.ReadInput("Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	if err := c.auth.ForgotPassword(ctx, email); err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ A recovery code has been sent to %s\n", email)
	c.io.Println("Run 'sliceops reset-password' to set a new password.")

	return nil
}

func (c *Cli) runResetPassword(ctx context.Context, args []string) error {
	c.io.Println("=== Password Reset ===")
	c.io.Println()

	var email string
	var err error
	if len(args) > 0 {
		email = args[0]
	} else {
		email, err = c.io.ReadInput("Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	otp, err := c.io.ReadInput("Recovery code: ")
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	password, err := c.io.ReadPassword("New password (min 8 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirmPassword, err := c.io.ReadPassword("Confirm new password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	if err := c.auth.ResetPassword(ctx, email, password, confirmPassword, otp); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Password has been reset!")
	c.io.Println("Run 'sliceops login' to sign in with your new password.")

	return nil
}
