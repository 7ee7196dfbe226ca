package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

// DSN returns the data source name of the connection for the named
// dialect. It implements adapter.Source.
func (c Connection) DSN(dialectName string) (string, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("config.DSN", dialectName, "unknown dialect")
	}
	switch info.Family {
	case dialect.FamilyMySQL:
		return c.mysqlDSN(info)
	case dialect.FamilySQLite:
		if info.Name == dialect.Turso {
			return c.tursoDSN()
		}
		return c.sqliteDSN()
	default:
		return c.postgresDSN(info)
	}
}

func (c Connection) postgresDSN(info dialect.Info) (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	host := c.Host
	if host == "" && info.Name == dialect.DSQL {
		host = c.AWS.Endpoint()
	}
	if host == "" || c.Database == "" {
		return "", dbkit.NewInvalidArgumentError("config.DSN", info.Name, "connection needs a url or a host and database")
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(c.port(info))),
		Path:   "/" + c.Database,
	}
	user := c.user(info)
	if c.Password != "" {
		u.User = url.UserPassword(user, c.Password)
	} else {
		u.User = url.User(user)
	}
	ssl := c.SSL
	if ssl == "" && info.Name == dialect.DSQL {
		ssl = SSLRequire
	}
	if ssl != "" {
		u.RawQuery = url.Values{"sslmode": {string(ssl)}}.Encode()
	}
	return u.String(), nil
}

func (c Connection) mysqlDSN(info dialect.Info) (string, error) {
	cfg := mysql.NewConfig()
	if c.URL != "" {
		if !strings.HasPrefix(c.URL, "mysql://") && !strings.HasPrefix(c.URL, "mariadb://") {
			return c.URL, nil
		}
		u, err := url.Parse(c.URL)
		if err != nil {
			return "", dbkit.NewInvalidArgumentError("config.DSN", "url", err.Error())
		}
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = net.JoinHostPort(u.Hostname(), strconv.Itoa(info.DefaultPort))
		}
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		for k, v := range u.Query() {
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[k] = v[0]
		}
	} else {
		if c.Host == "" || c.Database == "" {
			return "", dbkit.NewInvalidArgumentError("config.DSN", info.Name, "connection needs a url or a host and database")
		}
		cfg.User = c.user(info)
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.port(info)))
		cfg.DBName = c.Database
	}
	cfg.ParseTime = true
	switch c.SSL {
	case SSLDisable:
		cfg.TLSConfig = "false"
	case SSLPrefer:
		cfg.TLSConfig = "preferred"
	case SSLRequire:
		cfg.TLSConfig = "skip-verify"
	case SSLVerifyCA, SSLVerifyFull:
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN(), nil
}

// sqlitePragmas are applied to every SQLite connection.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

func (c Connection) sqliteDSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Database == "" {
		return "", dbkit.NewInvalidArgumentError("config.DSN", dialect.SQLite, "connection needs a url or a database file")
	}
	if c.Database == ":memory:" {
		return c.Database, nil
	}
	q := url.Values{"_pragma": sqlitePragmas}
	return "file:" + c.Database + "?" + q.Encode(), nil
}

func (c Connection) tursoDSN() (string, error) {
	u := c.URL
	if u == "" {
		if c.Host == "" {
			return "", dbkit.NewInvalidArgumentError("config.DSN", dialect.Turso, "connection needs a url or a host")
		}
		u = "libsql://" + c.Host
	}
	if c.Password == "" || strings.Contains(u, "authToken=") {
		return u, nil
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sauthToken=%s", u, sep, url.QueryEscape(c.Password)), nil
}

func (c Connection) port(info dialect.Info) int {
	if c.Port > 0 {
		return c.Port
	}
	return info.DefaultPort
}

func (c Connection) user(info dialect.Info) string {
	if c.User != "" {
		return c.User
	}
	return info.DefaultUser
}
