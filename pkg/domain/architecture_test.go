package domain

import (
	"testing"

	"boardgamestats/testutil"
)

// TestDomainImportsStandardLibraryOnly keeps the record schema importable
// from every layer.
func TestDomainImportsStandardLibraryOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.ThirdPartyImport, testutil.PrefixForbidden("boardgamestats")),
		"domain depends on the standard library only")
}
