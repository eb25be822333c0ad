package cli

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println()

	if !c.auth.IsAuthenticated() {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'sliceops login' to authenticate.")
		return nil
	}

	c.io.Println("Status: Authenticated")

	// Токен разбирается без проверки подписи: ключ знает только сервер,
	// здесь нужны лишь claims для отображения
	if raw := c.tokens.Token(ctx); raw != "" {
		c.printTokenClaims(raw)
	}

	if expiry, ok := c.cache.Expiry(ctx); ok {
		remaining := time.Until(expiry)
		c.io.Printf("Session cache expires: %s\n", expiry.Format(time.RFC3339))
		if remaining > 0 {
			c.io.Printf("Cache time remaining: %s\n", remaining.Round(time.Second))
		} else {
			c.io.Println("Session cache has expired and will be refreshed on next use.")
		}
	} else {
		c.io.Println("Session cache: empty (profile will be fetched on next use)")
	}

	return nil
}

func (c *Cli) printTokenClaims(raw string) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		c.io.Println("Token: opaque (not a JWT)")
		return
	}

	if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
		c.io.Printf("Token subject: %s\n", sub)
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}

	c.io.Printf("Token expires: %s\n", exp.Format(time.RFC3339))
	if remaining := time.Until(exp.Time); remaining > 0 {
		c.io.Printf("Token time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Printf("⚠️  Token expired %s ago. It will be refreshed on next request.\n",
			time.Since(exp.Time).Round(time.Second))
	}
}
