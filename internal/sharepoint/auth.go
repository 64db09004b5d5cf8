package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adamavenir/skillkit/internal/shell"
)

// GraphResource is the resource the Azure CLI issues tokens for.
const GraphResource = "https://graph.microsoft.com"

var azInstallHints = []string{
	"Install Azure CLI:",
	"  Linux:   curl -sL https://aka.ms/InstallAzureCLIDeb | sudo bash",
	"  macOS:   brew install azure-cli",
	"  Windows: https://aka.ms/installazurecliwindows",
}

var azLoginHints = []string{
	"Authenticate with:",
	"  az login --allow-no-subscriptions",
	"If tenant mismatch, use:",
	"  az login --allow-no-subscriptions --tenant <tenant-id>",
}

// ErrNotAuthenticated is returned when the Azure CLI cannot issue a token.
var ErrNotAuthenticated = errors.New("not authenticated to Azure")

// AzureCLI obtains Graph tokens from an installed, logged-in `az`.
type AzureCLI struct {
	Runner shell.Runner
}

// CheckInstalled runs `az version`.
func (a AzureCLI) CheckInstalled(ctx context.Context) error {
	if _, err := a.Runner.Run(ctx, "", "az", "version"); err != nil {
		return &StepError{Step: "Azure CLI not installed", Err: err, Hints: azInstallHints}
	}
	return nil
}

// AccessToken returns a bearer token for Microsoft Graph.
func (a AzureCLI) AccessToken(ctx context.Context) (string, error) {
	res, err := a.Runner.Run(ctx, "", "az", "account", "get-access-token",
		"--resource="+GraphResource, "--query", "accessToken", "-o", "tsv")
	if err != nil {
		return "", &StepError{Step: "Not authenticated to Azure", Err: fmt.Errorf("%w: %v", ErrNotAuthenticated, err), Hints: azLoginHints}
	}
	token := strings.TrimSpace(string(res.Stdout))
	if token == "" {
		return "", &StepError{Step: "Not authenticated to Azure", Err: ErrNotAuthenticated, Hints: azLoginHints}
	}
	return token, nil
}

// TokenClaims is the informational subset of an access token's claims.
type TokenClaims struct {
	Audience  []string
	ExpiresAt time.Time
	TenantID  string
	User      string
}

// Expired reports whether the token expired before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// InspectToken decodes the claims of a JWT access token without verifying
// its signature. The result is for diagnostics only.
func InspectToken(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, err
	}

	var out TokenClaims
	if aud, err := claims.GetAudience(); err == nil {
		out.Audience = aud
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if tid, ok := claims["tid"].(string); ok {
		out.TenantID = tid
	}
	for _, key := range []string{"upn", "unique_name", "preferred_username"} {
		if user, ok := claims[key].(string); ok && user != "" {
			out.User = user
			break
		}
	}
	return out, nil
}

// StepError is a failed pipeline step with the guidance shown to the user.
type StepError struct {
	Step  string
	Err   error
	Hints []string
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return e.Step
	}
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Hints returns the guidance attached to err, if any.
func Hints(err error) []string {
	var step *StepError
	if errors.As(err, &step) {
		return step.Hints
	}
	return nil
}
