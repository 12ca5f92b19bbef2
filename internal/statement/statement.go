// Package statement assembles DuckDB SQL text for the snowflake extension.
// Builders are pure functions: they never execute anything.
package statement

import (
	"fmt"
	"regexp"
	"strings"
)

type AuthMethod string

const (
	AuthPassword AuthMethod = "password"
	AuthKeyPair  AuthMethod = "key_pair"
	AuthOAuth    AuthMethod = "oauth"
)

// SecretParams carries the credential material for one CREATE SECRET.
type SecretParams struct {
	Account              string
	User                 string
	Method               AuthMethod
	Password             string
	PrivateKeyPEM        string
	PrivateKeyPassphrase string
	OAuthToken           string
	Database             string
	Warehouse            string
	Role                 string
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether value is safe to interpolate unquoted, as
// required for secret names and attach aliases.
func ValidIdent(value string) bool {
	return identPattern.MatchString(value)
}

// QuoteLiteral escapes value for embedding in a single-quoted SQL literal.
func QuoteLiteral(value string) string {
	return strings.ReplaceAll(value, `'`, `''`)
}

// QuoteIdent returns value as a double-quoted SQL identifier.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// SecretStatements returns the DROP and CREATE statements that replace the
// named secret. Exactly one auth-material clause is emitted, switched by
// params.Method.
func SecretStatements(name string, params SecretParams) (dropSQL, createSQL string, err error) {
	if !ValidIdent(name) {
		return "", "", fmt.Errorf("invalid secret name %q", name)
	}
	if strings.TrimSpace(params.Account) == "" || strings.TrimSpace(params.User) == "" {
		return "", "", fmt.Errorf("account and user are required")
	}

	parts := []string{
		"TYPE snowflake",
		fmt.Sprintf("ACCOUNT '%s'", QuoteLiteral(params.Account)),
		fmt.Sprintf("USER '%s'", QuoteLiteral(params.User)),
	}

	switch params.Method {
	case AuthPassword:
		parts = append(parts, fmt.Sprintf("PASSWORD '%s'", QuoteLiteral(params.Password)))
	case AuthKeyPair:
		parts = append(parts, "AUTH_TYPE 'key_pair'")
		parts = append(parts, fmt.Sprintf("PRIVATE_KEY '%s'", QuoteLiteral(params.PrivateKeyPEM)))
		if params.PrivateKeyPassphrase != "" {
			parts = append(parts, fmt.Sprintf("PRIVATE_KEY_PASSPHRASE '%s'", QuoteLiteral(params.PrivateKeyPassphrase)))
		}
	case AuthOAuth:
		parts = append(parts, "AUTH_TYPE 'oauth'")
		parts = append(parts, fmt.Sprintf("TOKEN '%s'", QuoteLiteral(params.OAuthToken)))
	default:
		return "", "", fmt.Errorf("unsupported auth method %q", params.Method)
	}

	if params.Database != "" {
		parts = append(parts, fmt.Sprintf("DATABASE '%s'", QuoteLiteral(params.Database)))
	}
	if params.Warehouse != "" {
		parts = append(parts, fmt.Sprintf("WAREHOUSE '%s'", QuoteLiteral(params.Warehouse)))
	}
	if params.Role != "" {
		parts = append(parts, fmt.Sprintf("ROLE '%s'", QuoteLiteral(params.Role)))
	}

	dropSQL = fmt.Sprintf("DROP SECRET IF EXISTS %s;", name)
	createSQL = fmt.Sprintf("CREATE SECRET %s (%s);", name, strings.Join(parts, ", "))
	return dropSQL, createSQL, nil
}

// DropSecret returns the best-effort cleanup statement for name.
func DropSecret(name string) string {
	return fmt.Sprintf("DROP SECRET IF EXISTS %s;", name)
}

// Passthrough wraps remoteSQL in a snowflake_query() call routed through the
// named secret. Single quotes in remoteSQL are doubled; the secret name is
// emitted unmodified as the final argument.
func Passthrough(remoteSQL, secretName string) string {
	return fmt.Sprintf("SELECT * FROM snowflake_query('%s', '%s');", QuoteLiteral(remoteSQL), secretName)
}

// Extension lifecycle statements.

func InstallExtension(source string) string {
	if strings.TrimSpace(source) == "" {
		source = "community"
	}
	return fmt.Sprintf("INSTALL snowflake FROM %s;", source)
}

func LoadExtension() string {
	return "LOAD snowflake;"
}

func ExtensionVersion() string {
	return "SELECT snowflake_version();"
}

// Metadata discovery statements, executed remotely via Passthrough.

func ShowDatabases() string {
	return "SHOW DATABASES"
}

func ListSchemas(database string) string {
	return fmt.Sprintf("SELECT SCHEMA_NAME FROM %s.INFORMATION_SCHEMA.SCHEMATA ORDER BY 1", QuoteIdent(database))
}

func ListTables(database, schema string) string {
	return fmt.Sprintf(
		"SELECT TABLE_NAME FROM %s.INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = '%s' ORDER BY 1",
		QuoteIdent(database), QuoteLiteral(schema),
	)
}

func ListColumns(database, schema, table string) string {
	return fmt.Sprintf(
		"SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, COLUMN_DEFAULT "+
			"FROM %s.INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = '%s' AND TABLE_NAME = '%s' ORDER BY ORDINAL_POSITION",
		QuoteIdent(database), QuoteLiteral(schema), QuoteLiteral(table),
	)
}

func CountRows(database, schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS ROW_COUNT FROM %s.%s.%s",
		QuoteIdent(database), QuoteIdent(schema), QuoteIdent(table))
}

func PreviewTable(database, schema, table string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s.%s.%s LIMIT %d",
		QuoteIdent(database), QuoteIdent(schema), QuoteIdent(table), limit)
}

func SessionInfo() string {
	return "SELECT CURRENT_VERSION() AS V, CURRENT_ACCOUNT() AS A, CURRENT_USER() AS U, CURRENT_ROLE() AS R"
}

// Attach mode statements: map the remote catalog into DuckDB for native SQL.

func Attach(alias, secretName string) (string, error) {
	if !ValidIdent(alias) {
		return "", fmt.Errorf("invalid attach alias %q", alias)
	}
	if !ValidIdent(secretName) {
		return "", fmt.Errorf("invalid secret name %q", secretName)
	}
	return fmt.Sprintf("ATTACH '' AS %s (TYPE snowflake, SECRET %s, READ_ONLY);", alias, secretName), nil
}

func Detach(alias string) (string, error) {
	if !ValidIdent(alias) {
		return "", fmt.Errorf("invalid attach alias %q", alias)
	}
	return fmt.Sprintf("DETACH %s;", alias), nil
}

// StripTrailingSemicolons normalizes user SQL before wrapping or splitting.
func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// SplitStatements splits a script on semicolons, dropping empty fragments.
// Naive with respect to semicolons inside string literals, matching the
// explorer's local-SQL behavior.
func SplitStatements(script string) []string {
	raw := strings.Split(StripTrailingSemicolons(script), ";")
	statements := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part != "" {
			statements = append(statements, part)
		}
	}
	return statements
}
