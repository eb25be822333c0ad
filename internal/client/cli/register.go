package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Registration ===")
	c.io.Println()

	name, err := c.io.ReadInput("Name: ")
	if err != nil {
		return fmt.Errorf("failed to read name: %w", err)
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.io.ReadPassword("Password (min 8 chars): ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirmPassword, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	c.io.Println()
	c.io.Println("Registering...")

	if err := c.auth.Register(ctx, name, email, password, confirmPassword); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration accepted!")
	c.io.Printf("A verification code has been sent to %s\n", email)
	c.io.Println()

	// Сразу предлагаем подтвердить email, не выходя из команды
	return c.promptVerifyOTP(ctx, email)
}

func (c *Cli) runVerify(ctx context.Context, args []string) error {
	c.io.Println("=== Email Verification ===")
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

	return c.promptVerifyOTP(ctx, email)
}

// promptVerifyOTP запрашивает OTP код; ввод "resend" повторяет отправку
func (c *Cli) promptVerifyOTP(ctx context.Context, email string) error {
	for {
		otp, err := c.io.ReadInput("Verification code (or 'resend'): ")
		if err != nil {
			return fmt.Errorf("failed to read code: %w", err)
		}

		if otp == "resend" {
			if err := c.auth.ResendVerificationOTP(ctx, email); err != nil {
				return err
			}
			c.io.Printf("A new code has been sent to %s\n", email)
			continue
		}

		if err := c.auth.VerifyEmailOTP(ctx, email, otp); err != nil {
			return err
		}

		c.io.Println()
		c.io.Println("✓ Email verified!")
		c.io.Println("Run 'sliceops login' to sign in.")
		return nil
	}
}
