package schema

import "testing"

func TestLoad(t *testing.T) {
	for _, dialect := range []Dialect{SQLite, Postgres} {
		migrations, err := Load(dialect)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", dialect, err)
		}
		if len(migrations) == 0 {
			t.Fatalf("Expected migrations for %s", dialect)
		}
		if migrations[0].Version != 1 {
			t.Errorf("Expected first migration version 1 for %s, got %d", dialect, migrations[0].Version)
		}
		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("Migrations for %s are not ordered: %s after %s",
					dialect, migrations[i].Name, migrations[i-1].Name)
			}
		}
	}
}

func TestLoad_UnsupportedDialect(t *testing.T) {
	if _, err := Load(Dialect("mysql")); err == nil {
		t.Fatal("Expected error for unsupported dialect")
	}
}
