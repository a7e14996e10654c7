package config

import (
	"flag"
	"os"
	"time"

	"github.com/sgescolar/authcore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-r int      refresh token validity, hours
//	-z string   reference time zone for end-of-day token expiry
//	-u string   directory service base URL
//	-t int      directory request timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-r", "-z", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ReferenceTimeZone, "z", config.ReferenceTimeZone, "reference time zone")
	fs.StringVar(&config.DirectoryBaseURL, "u", config.DirectoryBaseURL, "directory service base URL")

	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh_token_validity_duration (in hours)")
	directoryTimeout := fs.Int("t", int(config.DirectoryTimeout.Seconds()), "directory request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Hour
	config.DirectoryTimeout = time.Duration(*directoryTimeout) * time.Second
}
