package dbx

import "strings"

// Dialect selects the placeholder style of the underlying driver.
type Dialect int

const (
	// DialectSQLite keeps '?' placeholders (modernc.org/sqlite).
	DialectSQLite Dialect = iota
	// DialectPostgres rewrites '?' placeholders to '$1'..'$n' (pgx).
	DialectPostgres
)

// Rebind rewrites a query written with '?' placeholders into the form the
// given dialect expects. Question marks inside single-quoted literals are
// left alone.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(itoa(n))
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
