package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/sprites/internal/model"
)

// JSONPrinter prints sprites resources in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type spriteOutput struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Status             string    `json:"status"`
	Organization       string    `json:"organization,omitempty"`
	URL                string    `json:"url,omitempty"`
	URLAuth            string    `json:"url_auth,omitempty"`
	Version            string    `json:"version,omitempty"`
	EnvironmentVersion string    `json:"environment_version,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newSpriteOutput(s model.Sprite) spriteOutput {
	return spriteOutput{
		ID:                 s.ID,
		Name:               s.Name,
		Status:             string(s.Status),
		Organization:       s.Organization,
		URL:                s.URL,
		URLAuth:            string(s.URLSettings.Auth),
		Version:            s.Version,
		EnvironmentVersion: s.EnvironmentVersion,
		CreatedAt:          s.CreatedAt.UTC(),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}
}

type checkpointOutput struct {
	ID        string    `json:"id"`
	Comment   string    `json:"comment,omitempty"`
	IsAuto    bool      `json:"is_auto"`
	CreatedAt time.Time `json:"created_at"`
}

func newCheckpointOutput(c model.Checkpoint) checkpointOutput {
	return checkpointOutput{
		ID:        c.ID,
		Comment:   c.Comment,
		IsAuto:    c.IsAuto,
		CreatedAt: c.CreateTime.UTC(),
	}
}

type ruleOutput struct {
	Domain string `json:"domain"`
	Action string `json:"action"`
}

type policyOutput struct {
	Egress struct {
		Policy string       `json:"policy,omitempty"`
		Rules  []ruleOutput `json:"rules"`
	} `json:"egress"`
}

func newPolicyOutput(p model.Policy) policyOutput {
	var out policyOutput
	out.Egress.Policy = string(p.Egress.Policy)
	out.Egress.Rules = make([]ruleOutput, 0, len(p.Egress.Rules))
	for _, r := range p.Egress.Rules {
		out.Egress.Rules = append(out.Egress.Rules, ruleOutput{Domain: r.Domain, Action: string(r.Action)})
	}
	return out
}

type policyCheckOutput struct {
	Domain  string `json:"domain"`
	Allowed bool   `json:"allowed"`
}

type execSessionOutput struct {
	ID        int        `json:"id"`
	Command   string     `json:"command"`
	IsActive  bool       `json:"is_active"`
	TTY       bool       `json:"tty"`
	Workdir   string     `json:"workdir,omitempty"`
	CreatedAt *time.Time `json:"created_at"`
}

type eventOutput struct {
	Type     string     `json:"type"`
	Data     string     `json:"data,omitempty"`
	Error    string     `json:"error,omitempty"`
	Signal   string     `json:"signal,omitempty"`
	PID      int        `json:"pid,omitempty"`
	ExitCode *int       `json:"exit_code,omitempty"`
	Time     *time.Time `json:"time,omitempty"`
}

type checkOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintSprites prints sprites in JSON format.
func (j *JSONPrinter) PrintSprites(sprites []model.Sprite) error {
	items := make([]spriteOutput, 0, len(sprites))
	for _, s := range sprites {
		items = append(items, newSpriteOutput(s))
	}
	return j.encode(items)
}

// PrintSprite prints a sprite in JSON format.
func (j *JSONPrinter) PrintSprite(sprite model.Sprite) error {
	return j.encode(newSpriteOutput(sprite))
}

// PrintCheckpoints prints checkpoints in JSON format.
func (j *JSONPrinter) PrintCheckpoints(checkpoints []model.Checkpoint) error {
	items := make([]checkpointOutput, 0, len(checkpoints))
	for _, c := range checkpoints {
		items = append(items, newCheckpointOutput(c))
	}
	return j.encode(items)
}

// PrintCheckpoint prints a checkpoint in JSON format.
func (j *JSONPrinter) PrintCheckpoint(checkpoint model.Checkpoint) error {
	return j.encode(newCheckpointOutput(checkpoint))
}

// PrintPolicy prints a policy in the same JSON shape the policy files use.
func (j *JSONPrinter) PrintPolicy(policy model.Policy) error {
	return j.encode(newPolicyOutput(policy))
}

// PrintPolicyCheck prints a policy check in JSON format.
func (j *JSONPrinter) PrintPolicyCheck(check model.PolicyCheck) error {
	return j.encode(policyCheckOutput{Domain: check.Domain, Allowed: check.Allowed})
}

// PrintExecSessions prints exec sessions in JSON format.
func (j *JSONPrinter) PrintExecSessions(sessions []model.ExecSessionInfo) error {
	items := make([]execSessionOutput, 0, len(sessions))
	for _, s := range sessions {
		item := execSessionOutput{
			ID:       s.ID,
			Command:  s.Command,
			IsActive: s.IsActive,
			TTY:      s.TTY,
			Workdir:  s.Workdir,
		}
		if s.CreatedAt != nil {
			utc := s.CreatedAt.UTC()
			item.CreatedAt = &utc
		}
		items = append(items, item)
	}
	return j.encode(items)
}

// PrintEvents prints streamed operation events in JSON format.
func (j *JSONPrinter) PrintEvents(events []model.StreamEvent) error {
	items := make([]eventOutput, 0, len(events))
	for _, e := range events {
		items = append(items, eventOutput(e))
	}
	return j.encode(items)
}

// PrintChecks prints the doctor check results in JSON format.
func (j *JSONPrinter) PrintChecks(results []model.CheckResult) error {
	items := make([]checkOutput, 0, len(results))
	for _, r := range results {
		items = append(items, checkOutput{ID: r.ID, Status: string(r.Status), Message: r.Message})
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
