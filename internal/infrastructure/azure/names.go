package azure

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// ResourceNames holds the deterministic names derived from one source
// database. Running the tool twice against the same file targets the
// same resources, which is what makes a second run fail fast on the
// conflict instead of silently provisioning a parallel stack.
type ResourceNames struct {
	ResourceGroup string
	Server        string
	Database      string
	FirewallRule  string
}

const (
	// Azure SQL server names are the tightest constraint: lowercase
	// letters, digits and interior hyphens, at most 63 characters.
	maxServerNameLength = 63

	// Rule granting access from Azure services (0.0.0.0 sentinel range).
	firewallRuleName = "allow-azure-services"

	// Rule granting access from the operator's configured client IP.
	clientRuleName = "allow-client-ip"

	// AdminUser is the administrator login created on the server. Fixed
	// rather than derived: Azure rejects reserved logins and the value
	// carries no information worth deriving.
	AdminUser = "sqlmigadmin"
)

// DeriveNames maps a source base name (filename without extension,
// already lowercased) onto the full resource name set.
func DeriveNames(base string) ResourceNames {
	s := sanitizeName(base)
	return ResourceNames{
		ResourceGroup: "rg-" + s + "-migration",
		Server:        truncateName("sql-"+s, maxServerNameLength),
		Database:      s,
		FirewallRule:  firewallRuleName,
	}
}

// sanitizeName reduces a base name to the character set every Azure
// resource type involved accepts: lowercase letters, digits and
// interior hyphens.
func sanitizeName(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	s := b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		s = "database"
	}
	return s
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return strings.TrimRight(name[:max], "-")
}

// Character classes for generated administrator passwords. The symbol
// set avoids characters that need escaping in connection strings.
const (
	passwordLength  = 24
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
	passwordSymbols = "!#%*+-_?"
)

// GeneratePassword produces a random administrator password meeting the
// Azure SQL complexity policy: at least one character from each class,
// drawn from crypto/rand. The result is a logger.Secret, so it renders
// redacted everywhere except an explicit Reveal.
func GeneratePassword() (logger.Secret, error) {
	classes := []string{passwordLower, passwordUpper, passwordDigits, passwordSymbols}
	all := strings.Join(classes, "")

	buf := make([]byte, 0, passwordLength)
	for _, class := range classes {
		c, err := randomByte(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < passwordLength {
		c, err := randomByte(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Shuffle so the guaranteed class characters do not sit at a fixed
	// prefix.
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		j := int(n.Int64())
		buf[i], buf[j] = buf[j], buf[i]
	}
	return logger.Secret(buf), nil
}

func randomByte(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("generating password: %w", err)
	}
	return set[n.Int64()], nil
}
