package mssql

import (
	"net/url"
	"strings"
)

// BuildDSN returns a sqlserver:// connection string for server and database
// that authenticates with the caller's integrated (Windows/Kerberos)
// identity. A named instance may be given as "host\instance"; an explicit
// port as "host:port".
func BuildDSN(server, database string) string {
	server = strings.TrimSpace(server)
	u := url.URL{Scheme: "sqlserver", Host: server}
	if host, instance, ok := strings.Cut(server, `\`); ok {
		u.Host = host
		u.Path = "/" + instance
	}
	q := url.Values{}
	if database = strings.TrimSpace(database); database != "" {
		q.Set("database", database)
	}
	q.Set("integrated security", "true")
	u.RawQuery = q.Encode()
	return u.String()
}
