package report

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jacobarthurs/bbhealth/internal/snapshot"
)

// JDBC defaults for a PostgreSQL URL that leaves them out.
const (
	defaultPostgresHost = "localhost"
	defaultPostgresPort = "5432"
)

func databaseItems(db *snapshot.Database) []Item {
	if db == nil {
		return nil
	}

	items := collect(
		item("Name", db.Name),
		item("Version", db.Version),
		item("Support Level", db.SupportLevel),
		item("Connection URL", db.ConnectionURL),
		item("Driver Name", db.DriverName),
		item("Driver Version", db.DriverVersion),
	)
	if db.ConnectionURL != nil {
		items = append(items, postgresItems(*db.ConnectionURL)...)
	}
	return items
}

// postgresItems decomposes a PostgreSQL JDBC URL into the target host, port
// and database. Other vendors' URLs yield nothing. Only what the URL itself
// says is reported; PG* environment variables of the machine running the
// check never leak into the result.
func postgresItems(jdbcURL string) []Item {
	dsn, ok := strings.CutPrefix(strings.TrimSpace(jdbcURL), "jdbc:")
	if !ok || !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	target, err := parsePostgresURL(dsn)
	if err != nil {
		slog.Debug("unable to parse database connection URL", "url", jdbcURL, "error", err)
		return nil
	}

	addrs := target.addrs
	// A service, passfile or protocol setting from the environment can still
	// make pgconn reject the URL; the addresses parsed above stand in then.
	if cfg, err := pgconn.ParseConfig(target.dsn); err != nil {
		slog.Debug("database connection config rejected, using URL hosts", "url", jdbcURL, "error", err)
	} else {
		addrs = []string{hostPort(cfg.Host, cfg.Port)}
		for _, fb := range cfg.Fallbacks {
			addrs = append(addrs, hostPort(fb.Host, fb.Port))
		}
	}

	host, port, err := net.SplitHostPort(addrs[0])
	if err != nil {
		slog.Debug("unable to split database host", "address", addrs[0], "error", err)
		return nil
	}
	items := []Item{
		{Label: "Host", Value: host},
		{Label: "Port", Value: port},
	}
	if target.database != "" {
		items = append(items, Item{Label: "Database Name", Value: target.database})
	}
	// sslmode=prefer adds a plaintext fallback per host, so the same
	// address can appear more than once.
	seen := map[string]bool{addrs[0]: true}
	var hosts []string
	for _, hp := range addrs[1:] {
		if seen[hp] {
			continue
		}
		seen[hp] = true
		hosts = append(hosts, hp)
	}
	if len(hosts) > 0 {
		items = append(items, Item{Label: "Fallback Hosts", Value: strings.Join(hosts, ", ")})
	}
	return items
}

type postgresTarget struct {
	addrs    []string
	database string
	// dsn names every host with its port and pins the settings pgconn
	// would otherwise take from PG* environment variables.
	dsn string
}

func parsePostgresURL(dsn string) (postgresTarget, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return postgresTarget{}, err
	}

	var target postgresTarget
	for h := range strings.SplitSeq(u.Host, ",") {
		if h == "" {
			continue
		}
		addr, err := withDefaultPort(h)
		if err != nil {
			return postgresTarget{}, err
		}
		target.addrs = append(target.addrs, addr)
	}
	if len(target.addrs) == 0 {
		target.addrs = []string{net.JoinHostPort(defaultPostgresHost, defaultPostgresPort)}
	}

	query := u.Query()
	target.database = strings.TrimLeft(u.Path, "/")
	if target.database == "" {
		target.database = query.Get("dbname")
	}

	if !query.Has("sslmode") {
		query.Set("sslmode", "disable")
	}
	for key, value := range map[string]string{
		"sslrootcert":          "",
		"sslcert":              "",
		"sslkey":               "",
		"sslnegotiation":       "",
		"target_session_attrs": "any",
		"connect_timeout":      "0",
	} {
		if !query.Has(key) {
			query.Set(key, value)
		}
	}

	u.Host = strings.Join(target.addrs, ",")
	u.RawQuery = query.Encode()
	target.dsn = u.String()
	return target, nil
}

func withDefaultPort(h string) (string, error) {
	if net.ParseIP(strings.Trim(h, "[]")) != nil || !strings.Contains(h, ":") {
		return net.JoinHostPort(strings.Trim(h, "[]"), defaultPostgresPort), nil
	}
	host, port, err := net.SplitHostPort(h)
	if err != nil {
		return "", err
	}
	if host == "" {
		return "", errors.New("missing host before port in " + strconv.Quote(h))
	}
	if port == "" {
		port = defaultPostgresPort
	}
	return net.JoinHostPort(host, port), nil
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
