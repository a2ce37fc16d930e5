// Command devtoken mints a bearer token for an existing organization, for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/malwarebo/rentops/config"
	"github.com/malwarebo/rentops/security"
)

func main() {
	orgID := flag.String("org", "", "organization id (required)")
	subject := flag.String("sub", "devtoken", "token subject")
	roles := flag.String("roles", "owner", "comma separated roles")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *orgID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Security.Validate(cfg.IsProduction()); err != nil {
		fmt.Fprintf(os.Stderr, "security config: %v\n", err)
		os.Exit(1)
	}

	jwtManager := security.CreateJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTAudience, cfg.Security.JWTExpiration)
	token, err := jwtManager.GenerateTokenWithTTL(*orgID, *subject, splitRoles(*roles), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func splitRoles(raw string) []string {
	var roles []string
	for _, role := range strings.Split(raw, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
