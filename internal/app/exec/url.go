package exec

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/slok/sprites/internal/model"
)

// URLOpts are the options of an exec WebSocket URL.
type URLOpts struct {
	// Command is ignored when attaching to a session.
	Command []string
	// SessionID attaches to an existing session instead of running a command.
	SessionID *int
	TTY       bool
	// Stdin tells the server the client will write to stdin.
	Stdin      bool
	Cols       uint16
	Rows       uint16
	WorkingDir string
	Env        map[string]string
}

// BuildURL returns the exec WebSocket URL of a sprite.
func BuildURL(wsBaseURL, sprite string, opts URLOpts) (string, error) {
	if err := model.ValidateSpriteName(sprite); err != nil {
		return "", err
	}

	u, err := url.Parse(wsBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket base URL: %w: %w", err, model.ErrNotValid)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("websocket base URL must be ws or wss: %w", model.ErrNotValid)
	}

	// Path keeps the decoded form and RawPath the escaped one, like the REST paths.
	u.RawPath = strings.TrimSuffix(u.EscapedPath(), "/") + "/v1/sprites/" + url.PathEscape(sprite) + "/exec"
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/sprites/" + sprite + "/exec"

	q := url.Values{}
	if opts.SessionID != nil {
		id := "/" + strconv.Itoa(*opts.SessionID)
		u.Path += id
		u.RawPath += id
	} else {
		if err := model.ValidateCommand(opts.Command); err != nil {
			return "", err
		}
		q["cmd"] = opts.Command
	}

	if opts.TTY {
		q.Set("tty", "true")
		if opts.Cols > 0 {
			q.Set("cols", strconv.Itoa(int(opts.Cols)))
		}
		if opts.Rows > 0 {
			q.Set("rows", strconv.Itoa(int(opts.Rows)))
		}
	}

	if opts.Stdin {
		q.Set("stdin", "true")
	}

	if opts.WorkingDir != "" {
		q.Set("path", opts.WorkingDir)
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		q.Add("env", k+"="+opts.Env[k])
	}

	u.RawQuery = encodeQuery(q)

	return u.String(), nil
}

// encodeQuery encodes the query keeping the repeated cmd arguments first and
// in order.
func encodeQuery(q url.Values) string {
	var b strings.Builder
	write := func(k string) {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}

	write("cmd")
	rest := make([]string, 0, len(q))
	for k := range q {
		if k != "cmd" {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		write(k)
	}

	return b.String()
}
