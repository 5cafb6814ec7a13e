package httpapi

import (
	"reflect"
	"testing"
	"time"
)

func TestConfigValidateAppliesDefaults(test *testing.T) {
	test.Parallel()
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != defaultListenAddr {
		test.Fatalf("expected listen addr %q, got %q", defaultListenAddr, cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != defaultAllowedOrigin {
		test.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.ShutdownTimeout != defaultShutdownTimeout {
		test.Fatalf("unexpected shutdown timeout: %v", cfg.ShutdownTimeout)
	}
}

func TestConfigValidateKeepsExplicitValues(test *testing.T) {
	test.Parallel()
	cfg := Config{
		ListenAddr:      ":9090",
		AllowedOrigins:  []string{"https://app.example.com"},
		ShutdownTimeout: 30 * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.ShutdownTimeout != 30*time.Second {
		test.Fatalf("explicit values were overwritten: %+v", cfg)
	}
}

func TestParseAllowedOrigins(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: []string{}},
		{name: "single", raw: "http://localhost:3000", expected: []string{"http://localhost:3000"}},
		{name: "multiple with spaces", raw: "http://a.test, http://b.test ,http://c.test", expected: []string{"http://a.test", "http://b.test", "http://c.test"}},
		{name: "trailing comma", raw: "http://a.test,", expected: []string{"http://a.test"}},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			parsed := ParseAllowedOrigins(testCase.raw)
			if !reflect.DeepEqual(parsed, testCase.expected) {
				test.Fatalf("expected %v, got %v", testCase.expected, parsed)
			}
		})
	}
}
