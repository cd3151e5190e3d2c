package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkralj/hepmeter/pkg/meter"
)

func TestParseMonths(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []meter.MonthKey
		wantError bool
	}{
		{
			name:  "single month",
			input: "03.2024",
			want:  []meter.MonthKey{{Month: time.March, Year: 2024}},
		},
		{
			name:  "multiple months",
			input: "03.2024,04.2024",
			want: []meter.MonthKey{
				{Month: time.March, Year: 2024},
				{Month: time.April, Year: 2024},
			},
		},
		{
			name:  "whitespace tolerated",
			input: " 03.2024 , 04.2024 ",
			want: []meter.MonthKey{
				{Month: time.March, Year: 2024},
				{Month: time.April, Year: 2024},
			},
		},
		{
			name:      "empty list",
			input:     "",
			wantError: true,
		},
		{
			name:      "malformed month",
			input:     "2024-03",
			wantError: true,
		},
		{
			name:      "month out of range",
			input:     "13.2024",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonths(tt.input)

			if tt.wantError {
				if err == nil {
					t.Errorf("parseMonths(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMonths(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d months, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("months[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseYears(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []int
		wantError bool
	}{
		{
			name:  "single year",
			input: "2024",
			want:  []int{2024},
		},
		{
			name:  "multiple years",
			input: "2023,2024",
			want:  []int{2023, 2024},
		},
		{
			name:      "empty list",
			input:     "",
			wantError: true,
		},
		{
			name:      "not a number",
			input:     "twenty-twenty",
			wantError: true,
		},
		{
			name:      "implausible year",
			input:     "1024",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseYears(tt.input)

			if tt.wantError {
				if err == nil {
					t.Errorf("parseYears(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseYears(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d years, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("years[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatterRejectsUnknownFormat(t *testing.T) {
	if _, err := formatter("xml", false); err == nil {
		t.Error("formatter(xml) error = nil, want error")
	}
	if _, err := formatter("json", false); err != nil {
		t.Errorf("formatter(json) error = %v, want nil", err)
	}
	if _, err := formatter("", false); err != nil {
		t.Errorf("formatter(auto) error = %v, want nil", err)
	}
}

func TestActiveConfigPathPrefersExplicit(t *testing.T) {
	if got := activeConfigPath("/etc/hepmeter/custom.yaml"); got != "/etc/hepmeter/custom.yaml" {
		t.Errorf("activeConfigPath(explicit) = %q, want explicit path back", got)
	}
}

func TestImportRequiresMonths(t *testing.T) {
	err := runImportCommand("", []string{})
	if err == nil {
		t.Error("runImportCommand without -months error = nil, want error")
	}
}

func TestImportYearsRequiresYears(t *testing.T) {
	err := runImportYearsCommand("", []string{})
	if err == nil {
		t.Error("runImportYearsCommand without -years error = nil, want error")
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cmd := &configCommand{}
	if err := cmd.runInit([]string{"-output", path}); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// A second init without -force must refuse to overwrite.
	if err := cmd.runInit([]string{"-output", path}); err == nil {
		t.Error("second config init error = nil, want refusal to overwrite")
	}

	// With -force it succeeds.
	if err := cmd.runInit([]string{"-output", path, "-force"}); err != nil {
		t.Errorf("forced config init error = %v", err)
	}
}

func TestUnknownConfigSubcommandFails(t *testing.T) {
	if got := runConfigCommand("", []string{"bogus"}); got == nil {
		t.Error("unknown config subcommand error = nil, want error")
	}
}
