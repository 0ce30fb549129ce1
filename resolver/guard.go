package resolver

import (
	"fmt"
	"strings"
)

// blockedKeywords are statement types a generated query must never contain.
// Generated SQL is read-only; anything mutating data or schema is rejected.
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "ALTER", "TRUNCATE", "CREATE", "INSERT",
}

// ValidateSQL rejects generated SQL containing blocked keywords.
func ValidateSQL(sql string) error {
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return ' '
	}, strings.ToUpper(sql))
	padded := " " + normalized + " "

	for _, kw := range blockedKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return fmt.Errorf("query contains blocked SQL keyword: %s", kw)
		}
	}
	return nil
}

// StripFences removes markdown code fences some models wrap their SQL in.
func StripFences(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasPrefix(sql, "```sql") {
		sql = strings.TrimSpace(sql[6:])
	}
	if strings.HasPrefix(sql, "```") {
		sql = strings.TrimSpace(sql[3:])
	}
	if strings.HasSuffix(sql, "```") {
		sql = strings.TrimSpace(sql[:len(sql)-3])
	}
	return sql
}
