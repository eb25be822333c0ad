package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	c.io.Println("=== Login ===")
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

	password, err := c.resolvePassword()
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	if err := c.auth.Login(ctx, email, password); err != nil {
		return err
	}

	identity := c.auth.Identity()

	c.io.Println()
	c.io.Println("✓ Login successful!")
	if identity != nil {
		c.io.Printf("Signed in as: %s <%s>\n", identity.Name, identity.Email)
		c.io.Printf("Stores available: %d\n", len(identity.Stores))
	}
	c.io.Println()
	c.io.Println("Your session has been saved.")

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	c.auth.Logout(ctx)

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
