package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sliceops/sliceops/internal/client/auth"
	"github.com/sliceops/sliceops/internal/client/iocli"
)

// PasswordSource задает неинтерактивные источники пароля для login
type PasswordSource struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io        iocli.IO
	auth      *auth.Service
	tokens    *auth.TokenStore
	cache     *auth.SessionCache
	passwords PasswordSource
}

func New(io iocli.IO, authService *auth.Service, tokens *auth.TokenStore, cache *auth.SessionCache, passwords PasswordSource) *Cli {
	return &Cli{
		io:        io,
		auth:      authService,
		tokens:    tokens,
		cache:     cache,
		passwords: passwords,
	}
}

// resolvePassword возвращает пароль для login по приоритету:
// 1. Переменная окружения SLICEOPS_PASSWORD
// 2. Файл из --password-file
// 3. Параметр --password
// 4. Интерактивный prompt (fallback)
func (c *Cli) resolvePassword() (string, error) {
	if envPassword := os.Getenv("SLICEOPS_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// PrintUsage выводит справку по командам консоли
func (c *Cli) PrintUsage() {
	c.io.Printf("%s", usageText)
}
