package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"catalog-backup/internal/backup"
	apperrors "catalog-backup/internal/errors"
	"catalog-backup/internal/metacard"

	"gopkg.in/yaml.v3"
)

// BatchSummary describes the outcome of one create, update or delete command
type BatchSummary struct {
	Operation      string        `json:"operation" yaml:"operation"`
	Items          int           `json:"items" yaml:"items"`
	Succeeded      int           `json:"succeeded" yaml:"succeeded"`
	BackupFailures []string      `json:"backup_failures,omitempty" yaml:"backup_failures,omitempty"`
	DeleteFailures []string      `json:"delete_failures,omitempty" yaml:"delete_failures,omitempty"`
	Duration       time.Duration `json:"duration_ns" yaml:"duration"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// SummarizeBatch builds a summary from the result of a Handle call
func SummarizeBatch(operation string, items int, err error, duration time.Duration) BatchSummary {
	summary := BatchSummary{
		Operation: operation,
		Items:     items,
		Succeeded: items,
		Duration:  duration,
	}
	if err == nil {
		return summary
	}

	summary.Error = apperrors.FormatUserError(err)
	batchErr, ok := backup.AsBatchError(err)
	if !ok {
		summary.Succeeded = 0
		return summary
	}

	summary.BackupFailures = batchErr.BackupFailures
	summary.DeleteFailures = batchErr.DeleteFailures

	failed := make(map[string]struct{})
	for _, id := range batchErr.BackupFailures {
		failed[id] = struct{}{}
	}
	for _, id := range batchErr.DeleteFailures {
		failed[id] = struct{}{}
	}
	summary.Succeeded = items - len(failed)
	if summary.Succeeded < 0 {
		summary.Succeeded = 0
	}
	return summary
}

// Reporter renders command results
type Reporter struct {
	out    io.Writer
	format OutputFormat
	colors *ColorSystem
	icons  *IconSystem
	width  int
}

// NewReporter creates a reporter from config
func NewReporter(config Config) (*Reporter, error) {
	format, err := ParseFormat(config.Format)
	if err != nil {
		return nil, err
	}
	out := config.Writer
	if out == nil {
		out = DefaultConfig().Writer
	}

	return &Reporter{
		out:    out,
		format: format,
		colors: NewColorSystem(config.ColorEnabled, out),
		icons:  NewIconSystem(config.UseIcons),
		width:  terminalWidth(out),
	}, nil
}

// Batch renders a batch summary
func (r *Reporter) Batch(s BatchSummary) error {
	if r.format != FormatText {
		return r.encode(s)
	}

	var b strings.Builder
	if s.Error == "" {
		fmt.Fprintf(&b, "%s %s: %d metacard(s) processed in %s\n",
			r.status("success", ColorGreen), s.Operation, s.Items, s.Duration.Round(time.Millisecond))
		return r.write(b.String())
	}

	fmt.Fprintf(&b, "%s %s: %d of %d metacard(s) succeeded\n",
		r.status("failure", ColorRed), s.Operation, s.Succeeded, s.Items)
	if len(s.DeleteFailures) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", r.colors.Colorize("delete failures:", ColorYellow), r.wrapIDs(s.DeleteFailures, 19))
	}
	if len(s.BackupFailures) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", r.colors.Colorize("backup failures:", ColorYellow), r.wrapIDs(s.BackupFailures, 19))
	}
	if len(s.DeleteFailures) == 0 && len(s.BackupFailures) == 0 {
		fmt.Fprintf(&b, "  %s\n", s.Error)
	}
	return r.write(b.String())
}

// ScanSummary is the serializable form of a scan report
type ScanSummary struct {
	Root      string            `json:"root" yaml:"root"`
	Committed int               `json:"committed" yaml:"committed"`
	Stray     []backup.Artifact `json:"stray" yaml:"stray"`
}

// Scan renders stray artifacts found under root
func (r *Reporter) Scan(root string, report *backup.ScanReport) error {
	summary := ScanSummary{Root: root, Committed: report.Committed, Stray: report.Stray()}
	if r.format != FormatText {
		return r.encode(summary)
	}

	if len(summary.Stray) == 0 {
		return r.write(fmt.Sprintf("%s %s: %d committed backup(s), no stray artifacts\n",
			r.status("success", ColorGreen), root, summary.Committed))
	}

	header := fmt.Sprintf("%s %s: %d committed backup(s), %d stray artifact(s)\n",
		r.status("warning", ColorYellow), root, summary.Committed, len(summary.Stray))
	if err := r.write(header); err != nil {
		return err
	}

	table := NewTable(r.width, "KIND", "ID", "COMMITTED", "PATH")
	for _, a := range summary.Stray {
		committed := "no"
		if a.HasCommitted {
			committed = "yes"
		}
		table.AddRow(string(a.Kind), a.ID, committed, a.Path)
	}
	return table.Render(r.out)
}

// Metacard renders one decoded backup
func (r *Reporter) Metacard(m metacard.Metacard, path string) error {
	if r.format != FormatText {
		return r.encode(m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.colors.Colorize("id:", ColorBold), m.ID)
	fmt.Fprintf(&b, "%s %s\n", r.colors.Colorize("path:", ColorBold), path)
	names := m.AttributeNames()
	if len(names) == 0 {
		return r.write(b.String())
	}

	b.WriteString(r.colors.Colorize("attributes:", ColorBold) + "\n")
	for _, name := range names {
		value, _ := m.Attribute(name)
		fmt.Fprintf(&b, "  %s: %s\n", r.colors.Colorize(name, ColorCyan), formatValue(value))
	}
	return r.write(b.String())
}

// Error renders a failure message
func (r *Reporter) Error(err error) error {
	if err == nil {
		return nil
	}
	return r.write(fmt.Sprintf("%s %s\n", r.status("failure", ColorRed), apperrors.FormatUserError(err)))
}

func (r *Reporter) status(icon string, clr Color) string {
	return r.colors.Colorize(r.icons.Render(icon), clr)
}

// wrapIDs joins ids, breaking lines at the terminal width. indent is the
// column continuation lines start at.
func (r *Reporter) wrapIDs(ids []string, indent int) string {
	var b strings.Builder
	col := indent
	for i, id := range ids {
		piece := id
		if i < len(ids)-1 {
			piece += ","
		}
		if i > 0 {
			if col+1+len(piece) > r.width {
				b.WriteString("\n" + strings.Repeat(" ", indent))
				col = indent
			} else {
				b.WriteString(" ")
				col++
			}
		}
		b.WriteString(piece)
		col += len(piece)
	}
	return b.String()
}

func (r *Reporter) encode(v interface{}) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", r.format)
	}
}

func (r *Reporter) write(s string) error {
	_, err := io.WriteString(r.out, s)
	return err
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
