package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var dialects = []string{"vertica", "postgres"}

// tlsModes lists the TLS modes of both drivers: vertica-sql-go tlsmode
// values first, then PostgreSQL sslmode values.
var tlsModes = []string{
	"none", "server", "server-strict",
	"disable", "allow", "prefer", "require", "verify-ca", "verify-full",
}

func completeDialects(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return withPrefix(dialects, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTLSModes narrows the suggestions to the selected dialect when --dialect is set.
func completeTLSModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	candidates := tlsModes
	if d, err := cmd.Flags().GetString("dialect"); err == nil {
		switch strings.ToLower(d) {
		case "vertica":
			candidates = tlsModes[:3]
		case "postgres", "postgresql", "pg":
			candidates = tlsModes[3:]
		}
	}
	return withPrefix(candidates, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func withPrefix(values []string, prefix string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	return matches
}
