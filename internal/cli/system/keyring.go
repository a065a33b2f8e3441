package system

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/storage/postgres"
)

// KeyringSetCmd stores the PostgreSQL connection string, or with
// --calendar-token the contents of a Google OAuth token file
type KeyringSetCmd struct {
	Value         string `arg:"" help:"Connection string, or token file path with --calendar-token."`
	CalendarToken bool   `help:"Store a Google Calendar OAuth token instead of a connection string."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if cmd.CalendarToken {
		data, err := os.ReadFile(cmd.Value)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		if err := keyring.Set(keyring.CalendarToken, strings.TrimSpace(string(data))); err != nil {
			return err
		}
		fmt.Println("✓ Calendar token stored successfully in OS keyring")
		return nil
	}

	if !postgres.IsConnString(cmd.Value) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}
	if err := postgres.ValidateConnString(cmd.Value); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// the keyring is encrypted, so a password may live here
		fmt.Println("⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.Set(keyring.DatabaseConnection, cmd.Value); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	fmt.Println("✓ Connection string stored successfully in OS keyring")
	fmt.Println("  Set database.driver to postgres to use it")
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'studyplan keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Println("Connection string retrieved from keyring:")
	fmt.Println(maskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct {
	CalendarToken bool `help:"Delete the Google Calendar OAuth token instead of the connection string."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	secret := keyring.DatabaseConnection
	if cmd.CalendarToken {
		secret = keyring.CalendarToken
	}
	if err := keyring.Delete(secret); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", secret)
		}
		return err
	}
	fmt.Printf("✓ Deleted %s from OS keyring\n", secret)
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	fmt.Println("✓ OS keyring is available")
	for _, s := range []keyring.Secret{keyring.DatabaseConnection, keyring.CalendarToken} {
		if _, err := keyring.Get(s); err == nil {
			fmt.Printf("✓ %s is stored\n", s)
		} else if errors.Is(err, keyring.ErrNotFound) {
			fmt.Printf("ℹ No %s stored\n", s)
		}
	}
	return nil
}

// maskPassword hides the password of a URL or key=value connection string
func maskPassword(connStr string) string {
	if scheme, rest, ok := strings.Cut(connStr, "://"); ok {
		if at := strings.LastIndex(rest, "@"); at != -1 {
			if user, _, hasPass := strings.Cut(rest[:at], ":"); hasPass {
				return scheme + "://" + user + ":****" + rest[at:]
			}
		}
		return connStr
	}

	if !strings.Contains(connStr, "password=") {
		return connStr
	}
	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
