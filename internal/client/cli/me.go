package cli

import (
	"context"
	"fmt"
	"text/template"
)

func (c *Cli) runMe(ctx context.Context) error {
	if !c.auth.IsAuthenticated() {
		return fmt.Errorf("not authenticated. Please run 'sliceops login' first")
	}

	identity, err := c.auth.FetchProfile(ctx)
	if err != nil {
		return err
	}

	tmpl, err := template.New("identity").Parse(identityTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse identity template: %w", err)
	}
	if err := tmpl.Execute(c.io, identity); err != nil {
		return fmt.Errorf("failed to render identity: %w", err)
	}

	return nil
}
