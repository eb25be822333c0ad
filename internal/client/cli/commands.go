package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду консоли. Initialize восстанавливает сессию из
// локального хранилища до того, как команда увидит её состояние.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	c.auth.Initialize(ctx)

	switch command {
	case "register":
		return c.runRegister(ctx)
	case "verify":
		return c.runVerify(ctx, args)
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "me", "whoami":
		return c.runMe(ctx)
	case "forgot-password":
		return c.runForgotPassword(ctx, args)
	case "reset-password":
		return c.runResetPassword(ctx, args)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}
