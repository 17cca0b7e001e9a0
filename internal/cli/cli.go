// Package cli renders discovery and validation results for the terminal, or as
// JSON/YAML when the output is meant for another program.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/kimeltech/mcp-chat/internal/validator"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// OutputFormat controls how results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

const ruleWidth = 70

// ParseOutputFormat validates a --output value
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Printer writes results to out in one format. Progress notices are only
// written in text mode so machine-readable output stays parseable.
type Printer struct {
	out    io.Writer
	output OutputFormat
	num    *message.Printer

	ok   func(a ...any) string
	fail func(a ...any) string
	warn func(a ...any) string
	bold func(a ...any) string
}

// NewPrinter creates a Printer
func NewPrinter(out io.Writer, output OutputFormat) *Printer {
	return &Printer{
		out:    out,
		output: output,
		num:    message.NewPrinter(language.English),
		ok:     color.New(color.FgGreen).SprintFunc(),
		fail:   color.New(color.FgRed).SprintFunc(),
		warn:   color.New(color.FgYellow).SprintFunc(),
		bold:   color.New(color.Bold).SprintFunc(),
	}
}

// IsText reports whether the printer renders for people
func (p *Printer) IsText() bool {
	return p.output == OutputText
}

// Notice prints a progress line in text mode
func (p *Printer) Notice(format string, args ...any) {
	if !p.IsText() {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Models prints up to limit models (all when limit <= 0)
func (p *Printer) Models(models []catalog.Model, limit int) error {
	shown := models
	if limit > 0 && len(models) > limit {
		shown = models[:limit]
	}

	switch p.output {
	case OutputJSON:
		return writeJSON(p.out, nonNil(shown))
	case OutputYAML:
		return writeYAML(p.out, nonNil(shown))
	}

	p.rule('=')
	fmt.Fprintf(p.out, "Found %s models matching criteria\n", p.bold(len(models)))
	p.rule('=')
	fmt.Fprintln(p.out)

	for i, m := range shown {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, p.bold(m.DisplayName()))
		fmt.Fprintf(p.out, "   ID: %s\n", m.ID)
		fmt.Fprintf(p.out, "   Price: $%s in / $%s out (per 1M tokens)\n",
			m.PromptPricePerMillion().StringFixed(2),
			m.CompletionPricePerMillion().StringFixed(2))
		fmt.Fprintf(p.out, "   Context: %s tokens\n", p.num.Sprintf("%d", m.ContextLength))
		if caps := displayCapabilities(m); len(caps) > 0 {
			fmt.Fprintf(p.out, "   Capabilities: %s\n", strings.Join(caps, ", "))
		}
		fmt.Fprintln(p.out)
	}

	if hidden := len(models) - len(shown); hidden > 0 {
		fmt.Fprintf(p.out, "... and %d more models\n", hidden)
		fmt.Fprintf(p.out, "Use --limit %d to see all\n\n", len(models))
	}
	return nil
}

// RegistryLoaded prints what the validation run is about to check
func (p *Printer) RegistryLoaded(path string, f *registry.File) {
	p.Notice("Loaded config %s (version %s)", path, f.Version.String())
	p.Notice("   Default model: %s", f.DefaultModel)
	p.Notice("   Total models: %d (%d enabled)", len(f.Models), f.EnabledCount())
}

// Result prints one validation outcome as it completes
func (p *Printer) Result(r validator.Result) {
	if !p.IsText() {
		return
	}

	fmt.Fprintln(p.out)
	p.rule('=')
	fmt.Fprintf(p.out, "Testing: %s (%s)\n", p.bold(r.Name), r.ID)
	fmt.Fprintf(p.out, "   OpenRouter ID: %s\n", r.ModelID)
	fmt.Fprintf(p.out, "   Provider: %s\n", r.Provider)
	fmt.Fprintf(p.out, "   Enabled: %t\n", r.Enabled)
	p.rule('=')

	if !r.Exists {
		fmt.Fprintf(p.out, "   %s Model not found in OpenRouter\n", p.fail("FAIL"))
		if len(r.SimilarModels) > 0 {
			fmt.Fprintln(p.out, "   Similar models found:")
			for _, id := range r.SimilarModels {
				fmt.Fprintf(p.out, "      - %s\n", id)
			}
		}
		if len(r.ClosestMatches) > 0 {
			fmt.Fprintf(p.out, "   Did you mean: %s\n", strings.Join(r.ClosestMatches, ", "))
		}
		return
	}

	fmt.Fprintf(p.out, "   %s Model exists\n", p.ok("OK"))
	if r.ModelInfo != nil {
		fmt.Fprintf(p.out, "   Pricing: $%s/1M input tokens\n", r.ModelInfo.PromptPricePerMillion().StringFixed(2))
	}

	if r.Callable {
		fmt.Fprintf(p.out, "   %s Model responded: %s\n", p.ok("OK"), truncate(r.Response, 100))
		return
	}
	fmt.Fprintf(p.out, "   %s Model call failed\n", p.fail("FAIL"))
	fmt.Fprintf(p.out, "   Error: %s\n", r.Error)
}

// validationOutput is the machine-readable form of a validation run
type validationOutput struct {
	Summary     validator.Summary  `json:"summary" yaml:"summary"`
	SuccessRate string             `json:"success_rate" yaml:"success_rate"`
	Results     []validator.Result `json:"results" yaml:"results"`
}

// Summary prints the counts, the failures and the working models
func (p *Printer) Summary(results []validator.Result) error {
	s := validator.Summarise(results)

	switch p.output {
	case OutputJSON:
		return writeJSON(p.out, validationOutput{
			Summary:     s,
			SuccessRate: validator.Percent(s.Callable, s.Total),
			Results:     nonNil(results),
		})
	case OutputYAML:
		return writeYAML(p.out, validationOutput{
			Summary:     s,
			SuccessRate: validator.Percent(s.Callable, s.Total),
			Results:     nonNil(results),
		})
	}

	fmt.Fprintln(p.out)
	p.rule('=')
	fmt.Fprintln(p.out, p.bold("VALIDATION SUMMARY"))
	p.rule('=')

	fmt.Fprintln(p.out, "\nStatistics:")
	fmt.Fprintf(p.out, "   Total models tested: %d\n", s.Total)
	fmt.Fprintf(p.out, "   Models exist in OpenRouter: %d/%d (%s)\n", s.Exists, s.Total, validator.Percent(s.Exists, s.Total))
	fmt.Fprintf(p.out, "   Models callable: %d/%d (%s)\n", s.Callable, s.Total, validator.Percent(s.Callable, s.Total))

	if failed := validator.Failed(results); len(failed) > 0 {
		fmt.Fprintf(p.out, "\n%s (%d):\n", p.fail("Models with issues"), len(failed))
		for _, r := range failed {
			fmt.Fprintf(p.out, "\n   - %s (%s)\n", r.Name, r.ID)
			fmt.Fprintf(p.out, "     OpenRouter ID: %s\n", r.ModelID)
			if !r.Exists {
				fmt.Fprintln(p.out, "     Status: Does not exist in OpenRouter")
				if r.Suggestion != "" {
					fmt.Fprintf(p.out, "     Suggestion: %s\n", r.Suggestion)
				}
				continue
			}
			fmt.Fprintln(p.out, "     Status: Exists but not callable")
			fmt.Fprintf(p.out, "     Error: %s\n", r.Error)
		}
	}

	var working []validator.Result
	for _, r := range results {
		if r.Passed() {
			working = append(working, r)
		}
	}
	if len(working) > 0 {
		fmt.Fprintf(p.out, "\n%s (%d):\n", p.ok("Working models"), len(working))
		w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		for _, r := range working {
			fmt.Fprintf(w, "   - %s\t(%s)\t%s\n", r.Name, r.ID, r.ModelID)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(p.out)
	p.rule('=')

	if validator.AllPassed(results) {
		fmt.Fprintln(p.out, p.ok("\nAll models validated successfully!"))
	}
	return nil
}

// ReportSaved notes where the failure report went
func (p *Printer) ReportSaved(path string) {
	p.Notice("\n%s Detailed report saved to: %s", p.warn("!"), path)
}

func (p *Printer) rule(ch byte) {
	fmt.Fprintln(p.out, strings.Repeat(string(ch), ruleWidth))
}

// displayCapabilities lists what the console shows next to each model
func displayCapabilities(m catalog.Model) []string {
	var caps []string
	if m.SupportsTools() {
		caps = append(caps, "Tools")
	}
	if m.SupportsStructuredOutput() {
		caps = append(caps, "Structured")
	}
	if m.SupportsVision() {
		caps = append(caps, "Vision")
	}
	return caps
}

// --- helpers ---

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
