// Package lib provides a Go SDK for the sprites API.
//
// It manages sprites, their checkpoints and network policies, and runs
// commands on them over exec sessions, a WebSocket that multiplexes the
// process stdin, stdout, stderr and exit status.
//
// # Quick Start
//
//	client, err := lib.New(lib.Config{Token: os.Getenv("SPRITES_TOKEN")})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create a sprite and wait until it's ready.
//	sp, err := client.Sprites().Create(ctx, "my-sprite", &lib.CreateSpriteOpts{Wait: true})
//
//	// Run a command.
//	res, err := client.Exec().Run(ctx, "my-sprite", []string{"echo", "hello"}, nil)
//	fmt.Print(string(res.Stdout))
//
// # Exec sessions
//
// [Exec.Run] blocks until the command exits and returns its stdout, stderr
// and exit code. Set [ExecOpts] Stdin to feed it input, the end of the
// reader is sent as the stdin EOF.
//
// [Exec.Interactive] allocates a TTY and bridges it to the local terminal,
// which is set in raw mode for the session lifetime:
//
//	code, err := client.Exec().Interactive(ctx, "my-sprite", []string{"bash"}, nil)
//
// [Exec.Attach] does the same with a session that is already running, see
// [Exec.List].
//
// For custom logic use [Exec.Connect], the handler Setup registers the
// observers before any output is consumed and Run writes to the session:
//
//	sess, err := client.Exec().Connect(ctx, "my-sprite", []string{"cat"}, nil, lib.SessionHandler{
//	    Setup: func(s *lib.Session) {
//	        s.OnStdout(func(b []byte) { os.Stdout.Write(b) })
//	    },
//	    Run: func(ctx context.Context, s *lib.Session) error {
//	        if err := s.Write([]byte("hello\n")); err != nil {
//	            return err
//	        }
//	        return s.SendEOF()
//	    },
//	})
//	code, _ := sess.ExitCode()
//
// # Checkpoints and policies
//
//	events, err := client.Checkpoints().Create(ctx, "my-sprite", "before upgrade")
//	_, err = client.Checkpoints().Restore(ctx, "my-sprite", "v1")
//
//	pol, err := lib.ParsePolicy([]byte(`{"egress": {"policy": "block-all", "rules": [
//	    {"domain": "*.github.com", "action": "allow"}, // comments are allowed.
//	]}}`))
//	_, err = client.Policies().Update(ctx, "my-sprite", pol)
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrAlreadyExists]: Resource with the same name already exists.
//   - [ErrNotValid]: Invalid input.
//   - [ErrTimeout]: A sprite didn't get warm in time.
//   - [ErrProtocol]: An exec session broke the wire protocol or ended without exit status.
//
// API failures are [APIError] values, use [errors.As] to get the HTTP
// status and the server message. Nothing is retried.
//
// # Metrics
//
// Set [Config] MetricsRegisterer to get Prometheus metrics of the API
// requests and the exec sessions.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
