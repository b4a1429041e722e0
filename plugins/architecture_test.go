package plugins

import (
	"testing"

	"boardgamestats/testutil"
)

// TestPluginsStayOffInfrastructure keeps plugin code on the datasetapi
// contract: loading, storage and transport belong to the host.
func TestPluginsStayOffInfrastructure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PrefixForbidden(
		"boardgamestats/internal/loader",
		"boardgamestats/internal/blob",
		"boardgamestats/internal/infra",
		"boardgamestats/internal/adapters",
		"net/http",
	), "plugins must reach data through the core service")
}
