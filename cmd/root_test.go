package cmd

import (
	"testing"

	"dvdmirror/internal/mirrorcfg"
)

func TestBuildConfig_DefaultsNameFromSource(t *testing.T) {
	flagErrorStrategy = "abort"
	flagRefreshOrder = "forward"
	flagTitleName = ""
	flagRefresh = false
	flagSeed = 0
	flagQuiet = false

	cfg, err := buildConfig("/mnt/MY_DISC")
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.TitleName != "MY_DISC" {
		t.Errorf("TitleName = %q, want %q", cfg.TitleName, "MY_DISC")
	}
	if cfg.ErrorStrategy != mirrorcfg.Abort {
		t.Errorf("ErrorStrategy = %v, want Abort", cfg.ErrorStrategy)
	}
}

func TestBuildConfig_RejectsUnknownErrorStrategy(t *testing.T) {
	flagErrorStrategy = "nonsense"
	flagRefreshOrder = "forward"
	flagTitleName = "x"

	if _, err := buildConfig("source"); err == nil {
		t.Fatal("expected an error for an unknown --error-strategy value")
	}
	flagErrorStrategy = "abort"
}

func TestBuildConfig_RejectsUnknownRefreshOrder(t *testing.T) {
	flagErrorStrategy = "abort"
	flagRefreshOrder = "sideways"
	flagTitleName = "x"

	if _, err := buildConfig("source"); err == nil {
		t.Fatal("expected an error for an unknown --refresh-order value")
	}
	flagRefreshOrder = "forward"
}
