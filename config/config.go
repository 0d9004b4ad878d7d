package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr        string
	DBDriver    string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	PageSize    int
	Debug       bool
}

// ParseFlags reads the command line. Every flag defaults to its QFORMS_*
// environment variable, which may in turn come from a .env file.
func ParseFlags() (Config, error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	// a missing .env is the normal case in production
	_ = godotenv.Load()

	var host string
	fs.StringVar(&host, "host", env("QFORMS_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("QFORMS_PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBDriver, "db-driver", env("QFORMS_DB_DRIVER", DriverSQLite), "database driver (sqlite3 or postgres)")
	fs.StringVar(&cfg.DBUrl, "db-url", env("QFORMS_DB_URL", "qforms.sqlite"), "SQLite3 file path or PostgreSQL connection URL")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("QFORMS_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("QFORMS_TOKEN_TTL", 120), "token TTL in seconds")
	var pageSize uint
	fs.UintVar(&pageSize, "page-size", envUint("QFORMS_PAGE_SIZE", 50), "default page size of submission tables")
	fs.BoolVar(&cfg.Debug, "debug", env("QFORMS_DEBUG", "") == "true", "log at DEBUG level")
	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.PageSize = int(pageSize)

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres:
		err = errors.New("unsupported -db-driver " + cfg.DBDriver)
	case cfg.PageSize < 1:
		err = errors.New("-page-size must be positive")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint(n)
}
