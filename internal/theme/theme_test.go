package theme

import (
	"testing"

	"github.com/theirongolddev/synapseinbox/internal/message"
)

func withDetector(t *testing.T, detector func() bool) {
	original := detectDarkBackground
	detectDarkBackground = detector
	// Reset the cached auto theme so it re-detects with the new detector
	resetAutoTheme()
	t.Cleanup(func() {
		detectDarkBackground = original
		resetAutoTheme()
	})
}

func clearColorEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SYNAPSE_THEME", "")
	// NO_COLOR is presence-based, so force colors on instead of unsetting it.
	t.Setenv("SYNAPSE_NO_COLOR", "0")
}

func TestCurrentAutoUsesLightThemeWhenBackgroundIsLight(t *testing.T) {
	clearColorEnv(t)
	withDetector(t, func() bool { return false })

	if got := Current("auto"); got.Base != CatppuccinLatte.Base {
		t.Fatalf("expected light theme (Latte) for light background, got base %s", got.Base)
	}
}

func TestCurrentAutoUsesDarkThemeWhenBackgroundIsDark(t *testing.T) {
	clearColorEnv(t)
	withDetector(t, func() bool { return true })

	if got := Current("auto"); got.Base != CatppuccinMocha.Base {
		t.Fatalf("expected dark theme (Mocha) for dark background, got base %s", got.Base)
	}
}

func TestCurrentEnvOverridesFallback(t *testing.T) {
	clearColorEnv(t)
	withDetector(t, func() bool { return true })
	t.Setenv("SYNAPSE_THEME", "latte")

	if got := Current("mocha"); got.Base != CatppuccinLatte.Base {
		t.Fatalf("expected SYNAPSE_THEME to win, got base %s", got.Base)
	}
}

func TestNoColorForcesPlain(t *testing.T) {
	t.Setenv("SYNAPSE_NO_COLOR", "1")
	if got := FromName("mocha"); !got.IsPlain() {
		t.Fatalf("expected Plain theme when SYNAPSE_NO_COLOR=1")
	}
}

func TestForceColorOverridesNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("SYNAPSE_NO_COLOR", "0")
	if NoColorEnabled() {
		t.Fatal("SYNAPSE_NO_COLOR=0 should force colors on")
	}
}

func TestPlainByName(t *testing.T) {
	clearColorEnv(t)
	for _, name := range []string{"plain", "none", "NO-COLOR"} {
		if !FromName(name).IsPlain() {
			t.Errorf("FromName(%q) should be Plain", name)
		}
	}
}

func TestPriorityColor(t *testing.T) {
	th := CatppuccinMocha
	if th.PriorityColor(message.PriorityCritical) != th.Critical {
		t.Error("critical color mismatch")
	}
	if th.PriorityColor(message.PriorityNormal) != th.Normal {
		t.Error("normal color mismatch")
	}
	if th.PriorityColor(message.PriorityLow) == th.PriorityColor(message.PriorityHigh) {
		t.Error("low and high should differ")
	}
}
