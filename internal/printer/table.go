package printer

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/slok/sprites/internal/model"
)

// TablePrinter prints sprites resources in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

func (t *TablePrinter) newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
}

// PrintSprites prints sprites in a table format.
func (t *TablePrinter) PrintSprites(sprites []model.Sprite) error {
	if len(sprites) == 0 {
		return nil
	}

	tw := t.newTabWriter()
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tSTATUS\tURL\tCREATED")
	for _, s := range sprites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Status, s.URL, TimeAgo(s.CreatedAt))
	}

	return nil
}

// PrintSprite prints detailed sprite information.
func (t *TablePrinter) PrintSprite(s model.Sprite) error {
	fmt.Fprintf(t.writer, "Name:          %s\n", s.Name)
	fmt.Fprintf(t.writer, "ID:            %s\n", s.ID)
	fmt.Fprintf(t.writer, "Status:        %s\n", s.Status)
	fmt.Fprintf(t.writer, "Organization:  %s\n", s.Organization)
	fmt.Fprintf(t.writer, "URL:           %s\n", s.URL)
	fmt.Fprintf(t.writer, "URL auth:      %s\n", s.URLSettings.Auth)

	if s.Version != "" {
		fmt.Fprintf(t.writer, "Version:       %s\n", s.Version)
	}

	if s.EnvironmentVersion != "" {
		fmt.Fprintf(t.writer, "Environment:   %s\n", s.EnvironmentVersion)
	}

	fmt.Fprintf(t.writer, "Created:       %s\n", FormatTimestamp(s.CreatedAt))
	fmt.Fprintf(t.writer, "Updated:       %s\n", FormatTimestamp(s.UpdatedAt))

	return nil
}

// PrintCheckpoints prints checkpoints in a table format.
func (t *TablePrinter) PrintCheckpoints(checkpoints []model.Checkpoint) error {
	if len(checkpoints) == 0 {
		return nil
	}

	tw := t.newTabWriter()
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tAUTO\tCREATED\tCOMMENT")
	for _, c := range checkpoints {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, yesNo(c.IsAuto), TimeAgo(c.CreateTime), c.Comment)
	}

	return nil
}

// PrintCheckpoint prints detailed checkpoint information.
func (t *TablePrinter) PrintCheckpoint(c model.Checkpoint) error {
	fmt.Fprintf(t.writer, "ID:       %s\n", c.ID)
	fmt.Fprintf(t.writer, "Auto:     %s\n", yesNo(c.IsAuto))
	fmt.Fprintf(t.writer, "Created:  %s\n", FormatTimestamp(c.CreateTime))
	if c.Comment != "" {
		fmt.Fprintf(t.writer, "Comment:  %s\n", c.Comment)
	}

	return nil
}

// PrintPolicy prints the egress policy with its rules in evaluation order.
func (t *TablePrinter) PrintPolicy(p model.Policy) error {
	mode := string(p.Egress.Policy)
	if mode == "" {
		mode = "-"
	}
	fmt.Fprintf(t.writer, "Egress policy:  %s\n", mode)

	if len(p.Egress.Rules) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := t.newTabWriter()
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tDOMAIN\tACTION")
	for i, r := range p.Egress.Rules {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, r.Domain, r.Action)
	}

	return nil
}

// PrintPolicyCheck prints if a domain is allowed.
func (t *TablePrinter) PrintPolicyCheck(c model.PolicyCheck) error {
	verdict := "denied"
	if c.Allowed {
		verdict = "allowed"
	}
	fmt.Fprintf(t.writer, "%s: %s\n", c.Domain, verdict)

	return nil
}

// PrintExecSessions prints exec sessions in a table format.
func (t *TablePrinter) PrintExecSessions(sessions []model.ExecSessionInfo) error {
	if len(sessions) == 0 {
		return nil
	}

	tw := t.newTabWriter()
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tACTIVE\tTTY\tWORKDIR\tCREATED\tCOMMAND")
	for _, s := range sessions {
		created := "-"
		if s.CreatedAt != nil {
			created = TimeAgo(*s.CreatedAt)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, yesNo(s.IsActive), yesNo(s.TTY), s.Workdir, created, s.Command)
	}

	return nil
}

// PrintEvents prints streamed operation events, one per line.
func (t *TablePrinter) PrintEvents(events []model.StreamEvent) error {
	for _, e := range events {
		fmt.Fprintln(t.writer, formatEvent(e))
	}

	return nil
}

func formatEvent(e model.StreamEvent) string {
	switch e.Type {
	case model.EventTypeError:
		return "error: " + e.Error
	case model.EventTypeSignal:
		return "signal: " + e.Signal
	case model.EventTypeExited:
		if e.ExitCode != nil {
			return "exited: " + strconv.Itoa(*e.ExitCode)
		}
		return "exited"
	case model.EventTypeComplete:
		return "complete"
	}

	if e.Data != "" {
		return e.Type + ": " + e.Data
	}
	return e.Type
}

// PrintChecks prints the doctor check results.
func (t *TablePrinter) PrintChecks(results []model.CheckResult) error {
	tw := t.newTabWriter()
	defer tw.Flush()

	for _, r := range results {
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", r.Status, r.ID, r.Message)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
