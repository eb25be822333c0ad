package cli

const usageText = `
SliceOps Console

Usage:
  sliceops [OPTIONS] COMMAND [ARGS]

Options:
  --version              Show version information
  --server URL           Server URL (default: http://localhost:8080)
  --db PATH              Path to local session database (default: sliceops-console.db)
  --password PASSWORD    Password for login (not recommended, use env var or file)
  --password-file PATH   Path to file containing the password

Password Priority (highest to lowest):
  1. SLICEOPS_PASSWORD environment variable
  2. --password-file (file path)
  3. --password (command line)
  4. Interactive prompt (fallback)

Commands:
  register                Register a new account (sends a verification code)
  verify [email]          Verify email with the OTP code
  login [email]           Sign in and save the session
  logout                  Sign out and delete the local session
  status                  Show session and token status
  me                      Show the current profile, roles and stores
  forgot-password [email] Request a password recovery code
  reset-password [email]  Reset the password with a recovery code

Examples:
  # Interactive password prompt
  sliceops register
  sliceops login manager@pizza.example

  # Using environment variable (recommended)
  export SLICEOPS_PASSWORD='mySecretPassword123'
  sliceops login manager@pizza.example

  # Using password file (for automation)
  echo 'mySecretPassword123' > ~/.sliceops-password
  chmod 600 ~/.sliceops-password
  sliceops --password-file ~/.sliceops-password login manager@pizza.example

  # Other examples
  sliceops status
  sliceops me
  sliceops --server https://ops.pizza.example login
`

const identityTemplate = `
=== Profile ===

Name:  {{.Name}}
Email: {{.Email}}
ID:    {{.ID}}
{{- if .EmailVerifiedAt }}
Email verified: yes
{{- else }}
Email verified: no
{{- end }}

Global roles:
{{- if eq (len .GlobalRoles) 0 }}
  (none)
{{- end }}
{{- range .GlobalRoles }}
  - {{ .Name }}{{ if .Description }} ({{ .Description }}){{ end }}
{{- end }}

Permissions ({{ len .AllPermissions }}):
{{- range .AllPermissions }}
  - {{ . }}
{{- end }}

Stores ({{ len .Stores }}):
{{- if eq (len .Stores) 0 }}
  (none)
{{- end }}
{{- range .Stores }}
  - [{{ .Code }}] {{ .Name }}
{{- end }}

Summary:
  Stores:           {{ .Summary.TotalStores }}
  Roles:            {{ .Summary.TotalRoles }}
  Permissions:      {{ .Summary.TotalPermissions }}
  Manageable users: {{ .Summary.ManageableUsers }}
`
