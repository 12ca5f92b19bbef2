package statement

import (
	"strings"
	"testing"
)

func TestSecretStatementsPassword(t *testing.T) {
	dropSQL, createSQL, err := SecretStatements("sf_explorer_secret", SecretParams{
		Account:  "xy12345",
		User:     "alice",
		Method:   AuthPassword,
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("SecretStatements() error = %v", err)
	}
	if dropSQL != "DROP SECRET IF EXISTS sf_explorer_secret;" {
		t.Fatalf("drop = %q", dropSQL)
	}
	if !strings.HasPrefix(createSQL, "CREATE SECRET sf_explorer_secret (") {
		t.Fatalf("create = %q", createSQL)
	}
	if !strings.Contains(createSQL, "PASSWORD 'secret'") {
		t.Fatalf("create missing password clause: %q", createSQL)
	}
	if strings.Contains(createSQL, "PRIVATE_KEY") || strings.Contains(createSQL, "TOKEN") || strings.Contains(createSQL, "AUTH_TYPE") {
		t.Fatalf("create has extra auth clauses: %q", createSQL)
	}
}

func TestSecretStatementsExactlyOneAuthClause(t *testing.T) {
	cases := map[AuthMethod][]string{
		AuthPassword: {"PASSWORD '"},
		AuthKeyPair:  {"AUTH_TYPE 'key_pair'", "PRIVATE_KEY '"},
		AuthOAuth:    {"AUTH_TYPE 'oauth'", "TOKEN '"},
	}
	all := []string{"PASSWORD '", "PRIVATE_KEY '", "TOKEN '"}

	for method, want := range cases {
		_, createSQL, err := SecretStatements("s1", SecretParams{
			Account:       "acct",
			User:          "u",
			Method:        method,
			Password:      "pw",
			PrivateKeyPEM: "pem",
			OAuthToken:    "tok",
		})
		if err != nil {
			t.Fatalf("SecretStatements(%s) error = %v", method, err)
		}
		for _, clause := range want {
			if !strings.Contains(createSQL, clause) {
				t.Fatalf("method %s: missing %q in %q", method, clause, createSQL)
			}
		}
		materialClauses := 0
		for _, clause := range all {
			if strings.Contains(createSQL, clause) {
				materialClauses++
			}
		}
		if materialClauses != 1 {
			t.Fatalf("method %s: %d auth-material clauses in %q", method, materialClauses, createSQL)
		}
	}
}

func TestSecretStatementsOptionalDefaults(t *testing.T) {
	_, createSQL, err := SecretStatements("s1", SecretParams{
		Account:   "acct",
		User:      "u",
		Method:    AuthPassword,
		Password:  "pw",
		Database:  "DB1",
		Warehouse: "WH1",
		Role:      "R1",
	})
	if err != nil {
		t.Fatalf("SecretStatements() error = %v", err)
	}
	for _, clause := range []string{"DATABASE 'DB1'", "WAREHOUSE 'WH1'", "ROLE 'R1'"} {
		if !strings.Contains(createSQL, clause) {
			t.Fatalf("missing %q in %q", clause, createSQL)
		}
	}
}

func TestSecretStatementsEscapesLiterals(t *testing.T) {
	_, createSQL, err := SecretStatements("s1", SecretParams{
		Account:  "ac'ct",
		User:     "u",
		Method:   AuthPassword,
		Password: "p'w",
	})
	if err != nil {
		t.Fatalf("SecretStatements() error = %v", err)
	}
	if !strings.Contains(createSQL, "ACCOUNT 'ac''ct'") {
		t.Fatalf("account not escaped: %q", createSQL)
	}
	if !strings.Contains(createSQL, "PASSWORD 'p''w'") {
		t.Fatalf("password not escaped: %q", createSQL)
	}
}

func TestSecretStatementsRejectsBadName(t *testing.T) {
	if _, _, err := SecretStatements("bad name; DROP", SecretParams{Account: "a", User: "u", Method: AuthPassword}); err == nil {
		t.Fatal("expected error for invalid secret name")
	}
}

func TestSecretStatementsRejectsUnknownMethod(t *testing.T) {
	if _, _, err := SecretStatements("s1", SecretParams{Account: "a", User: "u", Method: "magic"}); err == nil {
		t.Fatal("expected error for unknown auth method")
	}
}

func TestPassthroughWrapsAndEscapes(t *testing.T) {
	got := Passthrough("SELECT 1", "sf_explorer_secret")
	if got != "SELECT * FROM snowflake_query('SELECT 1', 'sf_explorer_secret');" {
		t.Fatalf("Passthrough() = %q", got)
	}

	escaped := Passthrough("SELECT 'a''b'", "s1")
	if !strings.Contains(escaped, "'a''''b'") {
		t.Fatalf("quotes not doubled: %q", escaped)
	}
	if !strings.HasSuffix(escaped, ", 's1');") {
		t.Fatalf("secret name not trailing: %q", escaped)
	}
}

func TestMetadataBuildersQuoteIdentifiers(t *testing.T) {
	got := ListSchemas(`MY"DB`)
	if !strings.Contains(got, `"MY""DB".INFORMATION_SCHEMA.SCHEMATA`) {
		t.Fatalf("ListSchemas() = %q", got)
	}

	got = ListTables("DB1", "public'x")
	if !strings.Contains(got, "TABLE_SCHEMA = 'public''x'") {
		t.Fatalf("ListTables() = %q", got)
	}

	got = PreviewTable("DB1", "S1", "T1", 100)
	if got != `SELECT * FROM "DB1"."S1"."T1" LIMIT 100` {
		t.Fatalf("PreviewTable() = %q", got)
	}

	got = CountRows("DB1", "S1", "T1")
	if got != `SELECT COUNT(*) AS ROW_COUNT FROM "DB1"."S1"."T1"` {
		t.Fatalf("CountRows() = %q", got)
	}
}

func TestAttachStatements(t *testing.T) {
	got, err := Attach("sfdb", "s1")
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if got != "ATTACH '' AS sfdb (TYPE snowflake, SECRET s1, READ_ONLY);" {
		t.Fatalf("Attach() = %q", got)
	}

	if _, err := Attach("bad alias", "s1"); err == nil {
		t.Fatal("expected error for invalid alias")
	}

	detach, err := Detach("sfdb")
	if err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if detach != "DETACH sfdb;" {
		t.Fatalf("Detach() = %q", detach)
	}
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("CREATE TABLE t AS SELECT 1; SELECT * FROM t;;  ")
	if len(got) != 2 {
		t.Fatalf("statements = %d (%v)", len(got), got)
	}
	if got[0] != "CREATE TABLE t AS SELECT 1" || got[1] != "SELECT * FROM t" {
		t.Fatalf("statements = %v", got)
	}
	if len(SplitStatements("  ;; ")) != 0 {
		t.Fatal("expected no statements for empty script")
	}
}

func TestInstallExtensionDefaultsToCommunity(t *testing.T) {
	if got := InstallExtension(""); got != "INSTALL snowflake FROM community;" {
		t.Fatalf("InstallExtension() = %q", got)
	}
	if got := InstallExtension("core_nightly"); got != "INSTALL snowflake FROM core_nightly;" {
		t.Fatalf("InstallExtension() = %q", got)
	}
}
