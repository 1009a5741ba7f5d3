package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	lower, upper := cfg.TemperatureBounds()
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Runs Dir:          %s\n", cfg.RunsRoot())
	fmt.Fprintf(out, "  Designs:           %s\n", cfg.DesignsFile())
	fmt.Fprintf(out, "  Runs:              %s\n", strings.Join(cfg.RunNames(), ", "))
	fmt.Fprintf(out, "  Models:            %s\n", strings.Join(cfg.ModelNames(), ", "))
	fmt.Fprintf(out, "  Instructions:      %s\n", strings.Join(cfg.InstructionNames(), ", "))
	fmt.Fprintf(out, "  Seeds:             %v\n", cfg.SeedValues())
	fmt.Fprintf(out, "  Temperature:       [%v, %v)\n", lower, upper)
	fmt.Fprintf(out, "  API Base URL:      %s\n", cfg.BaseURL())
	fmt.Fprintf(out, "  Endpoint:          %s\n", cfg.RequestEndpoint())
	fmt.Fprintf(out, "  Completion Window: %s\n", cfg.Window())
	fmt.Fprintf(out, "  Batch Ceiling:     %d\n", cfg.BatchCeiling())
	fmt.Fprintf(out, "  Timeout:           %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Group By:          %q\n", cfg.GroupColumn())
	fmt.Fprintf(out, "  Debug:             %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Metrics:           %v\n", cfg.Metrics)
}
